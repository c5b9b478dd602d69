// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package audit appends immutable records of security-relevant actions.
//
// The audit trail is a side channel: it is never read back by this service,
// and a failure to write an event must never abort the operation that
// triggered it. Callers are expected to swallow Record errors at the call
// site (logging them), keeping the narrow best-effort boundary around the
// audit write only.
package audit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// ActorKind identifies who performed an audited action.
type ActorKind string

// Actor kinds. ActorSystem events carry no actor id.
const (
	ActorClient ActorKind = "client"
	ActorAdmin  ActorKind = "admin"
	ActorSystem ActorKind = "system"
)

// Audit actions recorded by the sign-in flow.
const (
	ActionAccountCreated     = "account_created"
	ActionMagicLinkRequested = "magic_link_requested"
	ActionLoginSuccessful    = "login_successful"
	ActionLogout             = "logout"
)

// Event is one append-only audit record. Events are never updated or
// deleted by this service.
type Event struct {
	ID        ulid.ULID
	ActorKind ActorKind
	ActorID   string // empty for system actions
	Action    string
	Meta      map[string]any
	CreatedAt time.Time
}

// Recorder appends audit events to a durable sink.
type Recorder interface {
	Record(ctx context.Context, kind ActorKind, actorID, action string, meta map[string]any) error
}
