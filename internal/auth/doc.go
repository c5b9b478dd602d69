// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package auth implements the member magic-link authentication lifecycle.
//
// # Domain Types
//
// Domain types (Account, LoginToken) should be created using their
// constructors:
//   - NewAccount - creates an Account with a validated email and plan tier
//   - NewLoginToken - creates a LoginToken with a validated fingerprint and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// MagicLinkService coordinates the full lifecycle: resolving or provisioning
// an account from an email address, issuing a single-use sign-in token,
// verifying a presented token exactly once, and resolving session
// credentials back to an identity. The raw sign-in token only ever exists in
// memory and in the outbound email; storage holds its SHA-256 fingerprint.
package auth
