// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginToken(t *testing.T) {
	accountID := ulid.Make()
	expiresAt := time.Now().Add(DefaultLoginTokenTTL)

	token, err := NewLoginToken(accountID, "fp", expiresAt)
	require.NoError(t, err)
	assert.Equal(t, accountID, token.AccountID)
	assert.Equal(t, "fp", token.Fingerprint)
	assert.Equal(t, expiresAt, token.ExpiresAt)
	assert.Nil(t, token.ConsumedAt)
	assert.NotEqual(t, ulid.ULID{}, token.ID)
}

func TestNewLoginToken_Invalid(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)

	_, err := NewLoginToken(ulid.ULID{}, "fp", expiresAt)
	assert.Error(t, err, "zero account id")

	_, err = NewLoginToken(ulid.Make(), "", expiresAt)
	assert.Error(t, err, "empty fingerprint")

	_, err = NewLoginToken(ulid.Make(), "fp", time.Time{})
	assert.Error(t, err, "zero expiry")
}

func TestLoginToken_UsableAt(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	token, err := NewLoginToken(ulid.Make(), "fp", now.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, token.UsableAt(now))
	assert.False(t, token.UsableAt(now.Add(time.Hour)), "expired at boundary")
	assert.False(t, token.UsableAt(now.Add(2*time.Hour)))

	consumedAt := now.Add(time.Minute)
	token.ConsumedAt = &consumedAt
	assert.False(t, token.UsableAt(now), "consumed tokens never usable")
	assert.True(t, token.IsConsumed())
}
