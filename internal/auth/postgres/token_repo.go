// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/removahq/portal/internal/auth"
)

// LoginTokenRepository implements auth.LoginTokenRepository using PostgreSQL.
type LoginTokenRepository struct {
	db DB
}

// NewLoginTokenRepository creates a new LoginTokenRepository.
func NewLoginTokenRepository(db DB) *LoginTokenRepository {
	return &LoginTokenRepository{db: db}
}

// Create stores a new login token record.
func (r *LoginTokenRepository) Create(ctx context.Context, token *auth.LoginToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_tokens (id, account_id, fingerprint, expires_at, consumed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.AccountID.String(),
		token.Fingerprint,
		token.ExpiresAt,
		token.ConsumedAt,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert login_token").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// Consume atomically marks the usable record matching fingerprint as
// consumed. The WHERE clause is the whole state machine: only a record that
// is both unconsumed and unexpired transitions, and the row count decides
// who won a concurrent race. A plain read-then-write would let two callers
// redeem the same token.
func (r *LoginTokenRepository) Consume(ctx context.Context, fingerprint string, at time.Time) (*auth.LoginToken, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE login_tokens SET consumed_at = $2
		WHERE fingerprint = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING id, account_id, fingerprint, expires_at, consumed_at, created_at
	`, fingerprint, at)

	token, err := scanLoginToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Unknown, already consumed, and expired all land here; callers must
		// not be able to tell them apart.
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_CONSUME_FAILED").
			With("operation", "consume login_token").
			Wrap(err)
	}
	return token, nil
}

// DeleteExpired removes records already past expiry and returns the count.
func (r *LoginTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM login_tokens WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired login_tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanLoginToken scans a single row into a LoginToken.
// Callers are responsible for handling pgx.ErrNoRows.
func scanLoginToken(row pgx.Row) (*auth.LoginToken, error) {
	var (
		idStr        string
		accountIDStr string
		fingerprint  string
		expiresAt    time.Time
		consumedAt   *time.Time
		createdAt    time.Time
	)

	err := row.Scan(&idStr, &accountIDStr, &fingerprint, &expiresAt, &consumedAt, &createdAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TOKEN_SCAN_FAILED").
			With("operation", "scan login_token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").
			With("operation", "parse token id").
			With("id", idStr).
			Wrap(err)
	}

	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT_ID").
			With("operation", "parse account id").
			With("account_id", accountIDStr).
			Wrap(err)
	}

	return &auth.LoginToken{
		ID:          id,
		AccountID:   accountID,
		Fingerprint: fingerprint,
		ExpiresAt:   expiresAt,
		ConsumedAt:  consumedAt,
		CreatedAt:   createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.LoginTokenRepository = (*LoginTokenRepository)(nil)
