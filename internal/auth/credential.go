// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is how long a minted session credential stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// CredentialSigner mints and parses the session credential carried in the
// member cookie.
//
// Credentials minted here are HS256 JWTs over the account id with enforced
// issued-at and expiry claims, so tampering and staleness are both
// detectable. Two legacy shapes from the previous portal are still accepted
// when allowLegacy is set: a composite "accountID:timestamp" string and a
// bare account id. Both resolve by account-id lookup only; the timestamp
// segment carried no meaning in the old portal and is discarded.
type CredentialSigner struct {
	secret      []byte
	ttl         time.Duration
	allowLegacy bool
	now         func() time.Time
}

// NewCredentialSigner creates a CredentialSigner. The secret must be
// non-empty; a zero ttl falls back to DefaultSessionTTL.
func NewCredentialSigner(secret string, ttl time.Duration, allowLegacy bool) (*CredentialSigner, error) {
	if secret == "" {
		return nil, oops.Code("CREDENTIAL_SECRET_EMPTY").Errorf("session secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &CredentialSigner{
		secret:      []byte(secret),
		ttl:         ttl,
		allowLegacy: allowLegacy,
		now:         time.Now,
	}, nil
}

// WithClock overrides the signer's time source. Intended for tests.
func (cs *CredentialSigner) WithClock(now func() time.Time) *CredentialSigner {
	cs.now = now
	return cs
}

// TTL returns the credential lifetime, which also bounds the cookie Max-Age.
func (cs *CredentialSigner) TTL() time.Duration {
	return cs.ttl
}

// Mint creates a signed credential for the account.
func (cs *CredentialSigner) Mint(accountID ulid.ULID) (string, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("CREDENTIAL_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}

	now := cs.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cs.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cs.secret)
	if err != nil {
		return "", oops.Code("CREDENTIAL_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Parse extracts the account id from a presented credential. Returns
// ErrInvalidCredential (wrapped) for anything that fails signature, expiry,
// or shape checks.
func (cs *CredentialSigner) Parse(value string) (ulid.ULID, error) {
	if value == "" {
		return ulid.ULID{}, oops.Code("CREDENTIAL_EMPTY").Wrap(ErrInvalidCredential)
	}

	// Signed credentials are compact JWTs: header.payload.signature.
	if strings.Count(value, ".") == 2 {
		return cs.parseSigned(value)
	}

	if !cs.allowLegacy {
		return ulid.ULID{}, oops.Code("CREDENTIAL_LEGACY_REJECTED").Wrap(ErrInvalidCredential)
	}
	return cs.parseLegacy(value)
}

func (cs *CredentialSigner) parseSigned(value string) (ulid.ULID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (any, error) { return cs.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cs.now),
	)
	if err != nil {
		return ulid.ULID{}, oops.Code("CREDENTIAL_PARSE_FAILED").
			With("cause", err.Error()).
			Wrap(ErrInvalidCredential)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("CREDENTIAL_INVALID_SUBJECT").
			With("cause", err.Error()).
			Wrap(ErrInvalidCredential)
	}
	return id, nil
}

// parseLegacy handles the previous portal's unsigned cookie values: a bare
// account id, or "accountID:timestamp" where the timestamp is informational
// only and must not be used as a freshness check.
func (cs *CredentialSigner) parseLegacy(value string) (ulid.ULID, error) {
	idPart, _, _ := strings.Cut(value, ":")

	id, err := ulid.Parse(idPart)
	if err != nil {
		return ulid.ULID{}, oops.Code("CREDENTIAL_LEGACY_INVALID").
			With("cause", err.Error()).
			Wrap(ErrInvalidCredential)
	}
	return id, nil
}
