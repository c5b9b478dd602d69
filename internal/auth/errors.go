// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAccountNotFound is returned when an email has no account and no signup
// context was supplied. The HTTP boundary collapses it into the same generic
// failure as every other sign-in error so responses never reveal whether an
// email is registered.
var ErrAccountNotFound = errors.New("account not found")

// ErrEmailTaken is returned by AccountRepository.Create when the email is
// already registered. Callers treat it as "somebody else won the race" and
// re-read the existing account.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidToken covers a wrong token, an already-consumed token, and a
// past-expiry token uniformly. The three cases are deliberately
// indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrInvalidCredential is returned when a session credential fails signature
// or expiry checks, or cannot be parsed.
var ErrInvalidCredential = errors.New("invalid session credential")
