// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// PlanTier is a customer subscription tier.
type PlanTier string

// Subscription tiers. TierStealth is the self-serve tier new signups land
// on; TierVanish is upgraded out-of-band by billing flows.
const (
	TierStealth PlanTier = "stealth"
	TierVanish  PlanTier = "vanish"
)

// Valid reports whether the tier is a known tier.
func (t PlanTier) Valid() bool {
	return t == TierStealth || t == TierVanish
}

// Account represents a customer organization. The email uniquely identifies
// at most one account; this subsystem never hard-deletes accounts.
type Account struct {
	ID          ulid.ULID
	Email       string
	OrgName     string // optional
	PlanTier    PlanTier
	LastLoginAt *time.Time // nil until the first successful login
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewAccount creates a validated Account at the default self-serve tier.
// The email is lowercased so lookups are exact-match.
func NewAccount(email, orgName string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").
			With("email", email).
			Errorf("email must contain @")
	}

	now := time.Now()
	return &Account{
		ID:        ulid.Make(),
		Email:     email,
		OrgName:   strings.TrimSpace(orgName),
		PlanTier:  TierStealth,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Identity is a point-in-time snapshot of an authenticated account, not a
// live reference. It is what verification and credential resolution hand
// back to the request layer.
type Identity struct {
	ID        ulid.ULID `json:"id"`
	Email     string    `json:"email"`
	OrgName   string    `json:"org_name,omitempty"`
	PlanTier  PlanTier  `json:"plan_tier"`
	CreatedAt time.Time `json:"created_at"`
}

// snapshot copies the account fields an authenticated caller is allowed to
// see.
func (a *Account) snapshot() *Identity {
	return &Identity{
		ID:        a.ID,
		Email:     a.Email,
		OrgName:   a.OrgName,
		PlanTier:  a.PlanTier,
		CreatedAt: a.CreatedAt,
	}
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrEmailTaken (wrapped) if the
	// email is already registered.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by exact email match.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by id.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// RecordLogin sets the account's last-successful-login timestamp.
	RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error
}
