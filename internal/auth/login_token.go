// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultLoginTokenTTL is how long an issued magic link stays redeemable.
const DefaultLoginTokenTTL = 24 * time.Hour

// LoginToken represents one outstanding or spent invitation to
// authenticate. Only the fingerprint of the raw token is ever persisted.
//
// A record is usable while ConsumedAt is nil and ExpiresAt is in the
// future. ConsumedAt transitions from nil to a timestamp at most once, via
// LoginTokenRepository.Consume; expired records are inert whether or not a
// sweep has physically deleted them.
type LoginToken struct {
	ID          ulid.ULID
	AccountID   ulid.ULID
	Fingerprint string
	ExpiresAt   time.Time
	ConsumedAt  *time.Time
	CreatedAt   time.Time
}

// NewLoginToken creates a validated LoginToken instance.
func NewLoginToken(accountID ulid.ULID, fingerprint string, expiresAt time.Time) (*LoginToken, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if fingerprint == "" {
		return nil, oops.Code("TOKEN_INVALID_FINGERPRINT").Errorf("fingerprint cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &LoginToken{
		ID:          ulid.Make(),
		AccountID:   accountID,
		Fingerprint: fingerprint,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}, nil
}

// IsExpired returns true if the token has expired.
func (t *LoginToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsConsumed returns true if the token has already been redeemed.
func (t *LoginToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}

// UsableAt returns true if the token could authenticate a caller at the
// given time. Useful for testing with deterministic time values.
func (t *LoginToken) UsableAt(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// LoginTokenRepository manages login token persistence.
type LoginTokenRepository interface {
	// Create stores a new login token record.
	Create(ctx context.Context, token *LoginToken) error

	// Consume atomically marks the usable record matching fingerprint as
	// consumed at the given time and returns it. The implementation must be
	// a single conditional update (consumed_at IS NULL AND expires_at > at)
	// so that concurrent presentations of the same raw token yield exactly
	// one success. Returns ErrNotFound (wrapped) when no usable record
	// matches, whether the fingerprint is unknown, already consumed, or
	// expired.
	Consume(ctx context.Context, fingerprint string, at time.Time) (*LoginToken, error)

	// DeleteExpired removes records already past expiry and returns the
	// count. Deletion is an optimization only; expiry is also enforced by
	// the Consume predicate.
	DeleteExpired(ctx context.Context) (int64, error)
}
