// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package mailer

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"

	"github.com/samber/oops"
)

//go:embed templates/*.tpl
var templateFS embed.FS

const (
	magicLinkSubjectTpl = "templates/magic_link_subject.tpl"
	magicLinkBodyTpl    = "templates/magic_link_body.tpl"
)

// magicLinkData is what the magic-link templates render with.
type magicLinkData struct {
	OrgName string
	Link    string
}

// MagicLinkMailer renders the sign-in email and hands it to a Sender. In
// dev mode the rendered mail is never sent; the link is written to the log
// instead so local sign-in works without an SMTP relay.
type MagicLinkMailer struct {
	sender  Sender
	subject *texttemplate.Template
	body    *template.Template
	logger  *slog.Logger
	devMode bool
}

// NewMagicLinkMailer creates a MagicLinkMailer. The sender may be nil only
// when devMode is set.
func NewMagicLinkMailer(sender Sender, logger *slog.Logger, devMode bool) (*MagicLinkMailer, error) {
	if sender == nil && !devMode {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required outside dev mode")
	}
	if logger == nil {
		logger = slog.Default()
	}

	subjectRaw, err := templateFS.ReadFile(magicLinkSubjectTpl)
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", magicLinkSubjectTpl).Wrap(err)
	}
	subject, err := texttemplate.New("magic_link_subject").Parse(string(subjectRaw))
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", magicLinkSubjectTpl).Wrap(err)
	}

	bodyRaw, err := templateFS.ReadFile(magicLinkBodyTpl)
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", magicLinkBodyTpl).Wrap(err)
	}
	body, err := template.New("magic_link_body").Parse(string(bodyRaw))
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_FAILED").With("template", magicLinkBodyTpl).Wrap(err)
	}

	return &MagicLinkMailer{
		sender:  sender,
		subject: subject,
		body:    body,
		logger:  logger,
		devMode: devMode,
	}, nil
}

// SendMagicLink renders and delivers the sign-in email.
func (m *MagicLinkMailer) SendMagicLink(ctx context.Context, to, orgName, link string) (string, error) {
	if orgName == "" {
		orgName = "your organization"
	}

	subject, body, err := m.render(orgName, link)
	if err != nil {
		return "", err
	}

	if m.devMode {
		m.logger.Info("magic link (delivery suppressed outside production)",
			"to", to,
			"org_name", orgName,
			"link", link,
		)
		return "suppressed", nil
	}

	return m.sender.Send(ctx, to, subject, body)
}

// render produces the subject line and HTML body.
func (m *MagicLinkMailer) render(orgName, link string) (subject, body string, err error) {
	data := magicLinkData{OrgName: orgName, Link: link}

	var subjectBuf strings.Builder
	if err := m.subject.Execute(&subjectBuf, data); err != nil {
		return "", "", oops.Code("MAIL_RENDER_FAILED").With("template", "subject").Wrap(err)
	}

	var bodyBuf bytes.Buffer
	if err := m.body.Execute(&bodyBuf, data); err != nil {
		return "", "", oops.Code("MAIL_RENDER_FAILED").With("template", "body").Wrap(err)
	}

	return strings.TrimSpace(subjectBuf.String()), bodyBuf.String(), nil
}
