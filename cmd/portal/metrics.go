// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package main

import (
	"context"

	"github.com/removahq/portal/internal/audit"
	"github.com/removahq/portal/internal/auth"
	"github.com/removahq/portal/internal/observability"
)

// instrumentedMailer counts mail outcomes around the real mailer.
type instrumentedMailer struct {
	next    auth.LinkMailer
	metrics *observability.Metrics
}

func (m *instrumentedMailer) SendMagicLink(ctx context.Context, to, orgName, link string) (string, error) {
	messageID, err := m.next.SendMagicLink(ctx, to, orgName, link)
	switch {
	case err != nil:
		m.metrics.MailSends.WithLabelValues("failed").Inc()
	case messageID == "suppressed":
		m.metrics.MailSends.WithLabelValues("suppressed").Inc()
	default:
		m.metrics.MailSends.WithLabelValues("sent").Inc()
	}
	return messageID, err
}

// instrumentedRecorder counts audit write failures. The error still reaches
// the caller; the service layer decides whether to swallow it.
type instrumentedRecorder struct {
	next    audit.Recorder
	metrics *observability.Metrics
}

func (r *instrumentedRecorder) Record(ctx context.Context, kind audit.ActorKind, actorID, action string, meta map[string]any) error {
	err := r.next.Record(ctx, kind, actorID, action, meta)
	if err != nil {
		r.metrics.AuditFailures.Inc()
	}
	return err
}

var (
	_ auth.LinkMailer = (*instrumentedMailer)(nil)
	_ audit.Recorder  = (*instrumentedRecorder)(nil)
)
