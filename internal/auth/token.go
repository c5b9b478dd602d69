// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// Login token configuration.
const (
	LoginTokenBytes = 32 // 256 bits of entropy, 64 hex chars on the wire
)

// GenerateLoginToken creates a secure random sign-in token and its
// fingerprint. Returns (plaintext_token, sha256_fingerprint, error).
// The plaintext token is embedded in the magic link sent to the user; only
// the fingerprint is stored in the database. A randomness failure is not
// recoverable and callers must abort the operation.
func GenerateLoginToken() (token, fingerprint string, err error) {
	tokenBytes := make([]byte, LoginTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", LoginTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	fingerprint = FingerprintToken(token)

	return token, fingerprint, nil
}

// FingerprintToken computes the SHA-256 fingerprint of a raw token. It is a
// pure function of the token, so a presented token can be matched to a
// stored record across process restarts without ever storing the raw value.
func FingerprintToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// MatchFingerprint checks whether the raw token matches the stored
// fingerprint. Uses constant-time comparison to prevent timing attacks.
func MatchFingerprint(token, fingerprint string) bool {
	if token == "" || fingerprint == "" {
		return false
	}
	computed := FingerprintToken(token)
	// Both are hex-encoded SHA-256 digests (64 chars), use constant-time compare
	return subtle.ConstantTimeCompare([]byte(computed), []byte(fingerprint)) == 1
}
