// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DB is the subset of pgxpool.Pool the recorder needs. pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder implements Recorder on top of the audit_events table.
type PostgresRecorder struct {
	db DB
}

// NewPostgresRecorder creates a PostgresRecorder.
func NewPostgresRecorder(db DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record appends one audit event. ActorID may be empty (stored as NULL) for
// system actions.
func (r *PostgresRecorder) Record(ctx context.Context, kind ActorKind, actorID, action string, meta map[string]any) error {
	var metaJSON []byte
	if len(meta) > 0 {
		var err error
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return oops.Code("AUDIT_META_ENCODE_FAILED").
				With("action", action).
				Wrap(err)
		}
	}

	var actorIDArg *string
	if actorID != "" {
		actorIDArg = &actorID
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_events (id, actor_kind, actor_id, action, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ulid.Make().String(), string(kind), actorIDArg, action, metaJSON, time.Now())
	if err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").
			With("operation", "insert audit_event").
			With("action", action).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ Recorder = (*PostgresRecorder)(nil)
