// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package mailer delivers portal emails over SMTP.
//
// The only email this service sends is the magic-link sign-in message. The
// transport is treated as an opaque, possibly-failing dependency: one
// attempt per send, no retries.
package mailer

import (
	"context"

	"github.com/samber/oops"
	"github.com/wneessen/go-mail"
)

// Sender is the one-shot outbound email contract.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (messageID string, err error)
}

// SMTPConfig carries the SMTP transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
}

// SMTPSender sends email through an SMTP relay using go-mail.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender creates an SMTPSender from transport settings.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host cannot be empty")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address cannot be empty")
	}

	options := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Port != 0 {
		options = append(options, mail.WithPort(cfg.Port))
	}
	if cfg.SSL {
		options = append(options, mail.WithSSLPort(true))
	}

	client, err := mail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, oops.Code("MAIL_CLIENT_FAILED").
			With("host", cfg.Host).
			Wrap(err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

// Send delivers a single HTML email and returns the message id.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").With("operation", "set from").Wrap(err)
	}
	if err := msg.To(to); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").With("operation", "set to").Wrap(err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	msg.SetMessageID()

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", oops.Code("MAIL_SEND_FAILED").
			With("operation", "dial and send").
			Wrap(err)
	}
	return msg.GetMessageID(), nil
}

// Compile-time interface check.
var _ Sender = (*SMTPSender)(nil)
