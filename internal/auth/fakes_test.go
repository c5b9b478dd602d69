// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/removahq/portal/internal/audit"
)

// memAccountRepo is an in-memory AccountRepository with the same uniqueness
// and not-found semantics as the postgres implementation.
type memAccountRepo struct {
	mu            sync.Mutex
	byID          map[ulid.ULID]*Account
	byEmail       map[string]ulid.ULID
	failWith      error // when set, every call fails with this error
	failLoginWith error // when set, only RecordLogin fails
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		byID:    make(map[ulid.ULID]*Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

func (r *memAccountRepo) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if _, exists := r.byEmail[account.Email]; exists {
		return oops.Code("ACCOUNT_EMAIL_TAKEN").Wrap(ErrEmailTaken)
	}
	clone := *account
	r.byID[account.ID] = &clone
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	clone := *r.byID[id]
	return &clone, nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id ulid.ULID) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	account, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	clone := *account
	return &clone, nil
}

func (r *memAccountRepo) RecordLogin(_ context.Context, id ulid.ULID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if r.failLoginWith != nil {
		return r.failLoginWith
	}
	account, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").Wrap(ErrNotFound)
	}
	stamp := at
	account.LastLoginAt = &stamp
	account.UpdatedAt = at
	return nil
}

// memTokenRepo is an in-memory LoginTokenRepository whose Consume mirrors
// the single conditional update of the postgres implementation: the check
// and the state change happen under one lock, so concurrent consumers of a
// fingerprint see exactly one success.
type memTokenRepo struct {
	mu       sync.Mutex
	byFP     map[string]*LoginToken
	failWith error
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{byFP: make(map[string]*LoginToken)}
}

func (r *memTokenRepo) Create(_ context.Context, token *LoginToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	clone := *token
	r.byFP[token.Fingerprint] = &clone
	return nil
}

func (r *memTokenRepo) Consume(_ context.Context, fingerprint string, at time.Time) (*LoginToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	token, ok := r.byFP[fingerprint]
	if !ok || !token.UsableAt(at) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(ErrNotFound)
	}
	stamp := at
	token.ConsumedAt = &stamp
	clone := *token
	return &clone, nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	now := time.Now()
	var deleted int64
	for fp, token := range r.byFP {
		if now.After(token.ExpiresAt) {
			delete(r.byFP, fp)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memTokenRepo) get(fingerprint string) *LoginToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.byFP[fingerprint]
	if !ok {
		return nil
	}
	clone := *token
	return &clone
}

// memRecorder captures audit events; failWith makes every write fail.
type memRecorder struct {
	mu       sync.Mutex
	events   []audit.Event
	failWith error
}

func (r *memRecorder) Record(_ context.Context, kind audit.ActorKind, actorID, action string, meta map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	r.events = append(r.events, audit.Event{
		ActorKind: kind,
		ActorID:   actorID,
		Action:    action,
		Meta:      meta,
	})
	return nil
}

func (r *memRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions := make([]string, len(r.events))
	for i, e := range r.events {
		actions[i] = e.Action
	}
	return actions
}

// memMailer captures sent links; failWith makes every send fail.
type memMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failWith error
}

type sentMail struct {
	to, orgName, link string
}

func (m *memMailer) SendMagicLink(_ context.Context, to, orgName, link string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return "", m.failWith
	}
	m.sent = append(m.sent, sentMail{to: to, orgName: orgName, link: link})
	return "msg-id", nil
}

func (m *memMailer) lastLink() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].link
}

var errBoom = errors.New("boom")

// testService wires a service over fresh fakes.
type testService struct {
	service  *MagicLinkService
	accounts *memAccountRepo
	tokens   *memTokenRepo
	recorder *memRecorder
	mail     *memMailer
}

func newTestService(t interface{ Fatalf(string, ...any) }) *testService {
	ts := &testService{
		accounts: newMemAccountRepo(),
		tokens:   newMemTokenRepo(),
		recorder: &memRecorder{},
		mail:     &memMailer{},
	}

	service, err := NewMagicLinkService(ts.accounts, ts.tokens, ts.recorder, ts.mail, ServiceConfig{
		BaseURL: "https://portal.test",
	}, nil)
	if err != nil {
		t.Fatalf("NewMagicLinkService: %v", err)
	}
	ts.service = service
	return ts
}
