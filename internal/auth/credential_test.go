// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewCredentialSigner(t *testing.T) {
	_, err := NewCredentialSigner("", time.Hour, false)
	assert.Error(t, err, "empty secret rejected")

	signer, err := NewCredentialSigner(testSecret, 0, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, signer.TTL(), "zero ttl defaults")
}

func TestCredentialSigner_RoundTrip(t *testing.T) {
	signer, err := NewCredentialSigner(testSecret, time.Hour, false)
	require.NoError(t, err)

	accountID := ulid.Make()
	credential, err := signer.Mint(accountID)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(credential, "."), "compact JWT shape")

	parsed, err := signer.Parse(credential)
	require.NoError(t, err)
	assert.Equal(t, accountID, parsed)
}

func TestCredentialSigner_Mint_ZeroAccount(t *testing.T) {
	signer, err := NewCredentialSigner(testSecret, time.Hour, false)
	require.NoError(t, err)

	_, err = signer.Mint(ulid.ULID{})
	assert.Error(t, err)
}

func TestCredentialSigner_Parse_Tampered(t *testing.T) {
	signer, err := NewCredentialSigner(testSecret, time.Hour, false)
	require.NoError(t, err)

	credential, err := signer.Mint(ulid.Make())
	require.NoError(t, err)

	// Flip a payload character; the signature no longer matches.
	parts := strings.Split(credential, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = signer.Parse(tampered)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestCredentialSigner_Parse_WrongSecret(t *testing.T) {
	minter, err := NewCredentialSigner(testSecret, time.Hour, false)
	require.NoError(t, err)
	verifier, err := NewCredentialSigner("another-secret-another-secret-ab", time.Hour, false)
	require.NoError(t, err)

	credential, err := minter.Mint(ulid.Make())
	require.NoError(t, err)

	_, err = verifier.Parse(credential)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestCredentialSigner_Parse_Expired(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	signer, err := NewCredentialSigner(testSecret, time.Hour, false)
	require.NoError(t, err)
	signer.WithClock(func() time.Time { return now })

	credential, err := signer.Mint(ulid.Make())
	require.NoError(t, err)

	// Still valid just before expiry.
	signer.WithClock(func() time.Time { return now.Add(59 * time.Minute) })
	_, err = signer.Parse(credential)
	require.NoError(t, err)

	// Invalid after expiry, regardless of signature validity.
	signer.WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = signer.Parse(credential)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestCredentialSigner_Parse_Legacy(t *testing.T) {
	accountID := ulid.Make()

	tests := []struct {
		name        string
		value       string
		allowLegacy bool
		wantErr     bool
	}{
		{
			name:        "composite id and timestamp",
			value:       accountID.String() + ":1756339200000",
			allowLegacy: true,
		},
		{
			name:        "bare account id",
			value:       accountID.String(),
			allowLegacy: true,
		},
		{
			name:        "legacy disabled",
			value:       accountID.String() + ":1756339200000",
			allowLegacy: false,
			wantErr:     true,
		},
		{
			name:        "garbage id segment",
			value:       "not-a-ulid:1756339200000",
			allowLegacy: true,
			wantErr:     true,
		},
		{
			name:        "empty value",
			value:       "",
			allowLegacy: true,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewCredentialSigner(testSecret, time.Hour, tt.allowLegacy)
			require.NoError(t, err)

			parsed, err := signer.Parse(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCredential)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, accountID, parsed)
		})
	}
}
