// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/removahq/portal/internal/audit"
	"github.com/removahq/portal/pkg/errutil"
)

// LinkMailer delivers a magic link to a member's inbox. Implementations do
// not retry; a send failure is surfaced once and the caller decides.
type LinkMailer interface {
	SendMagicLink(ctx context.Context, to, orgName, link string) (messageID string, err error)
}

// ServiceConfig carries the knobs MagicLinkService needs.
type ServiceConfig struct {
	// BaseURL is the externally reachable portal root used to build
	// verification links, e.g. "https://www.remova.org".
	BaseURL string

	// TokenTTL bounds how long an issued link stays redeemable. Zero means
	// DefaultLoginTokenTTL.
	TokenTTL time.Duration
}

// MagicLinkService implements the member sign-in lifecycle: account
// resolution, token issue, one-time verification, and credential
// resolution. All state lives in the repositories; the service itself is
// stateless and safe for concurrent use.
type MagicLinkService struct {
	accounts AccountRepository
	tokens   LoginTokenRepository
	recorder audit.Recorder
	mail     LinkMailer
	baseURL  string
	tokenTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewMagicLinkService creates a MagicLinkService. All dependencies are
// required; a nil logger falls back to slog.Default.
func NewMagicLinkService(
	accounts AccountRepository,
	tokens LoginTokenRepository,
	recorder audit.Recorder,
	mail LinkMailer,
	cfg ServiceConfig,
	logger *slog.Logger,
) (*MagicLinkService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("accounts repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("tokens repository is required")
	}
	if recorder == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("audit recorder is required")
	}
	if mail == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("link mailer is required")
	}
	if cfg.BaseURL == "" {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("base URL is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultLoginTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MagicLinkService{
		accounts: accounts,
		tokens:   tokens,
		recorder: recorder,
		mail:     mail,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		tokenTTL: cfg.TokenTTL,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithClock overrides the service's time source. Intended for tests.
func (s *MagicLinkService) WithClock(now func() time.Time) *MagicLinkService {
	s.now = now
	return s
}

// ResolveOrCreate maps an email to its account, provisioning a new
// stealth-tier account when the email is unknown and an organization name
// was supplied. An unknown email without an organization name fails with
// ErrAccountNotFound: requesting a link must never silently create an
// account, only the explicit signup path may.
func (s *MagicLinkService) ResolveOrCreate(ctx context.Context, email, orgName string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	account, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	if orgName == "" {
		return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").Wrap(ErrAccountNotFound)
	}

	account, err = NewAccount(email, orgName)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// Concurrent signup won the race; the unique index guarantees a
			// single row, so read it back.
			return s.accounts.GetByEmail(ctx, email)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.recordAudit(ctx, audit.ActorClient, account.ID.String(), audit.ActionAccountCreated, map[string]any{
		"email":    account.Email,
		"org_name": account.OrgName,
		"source":   "magic_link_signup",
	})

	return account, nil
}

// Issue mints a single-use sign-in token for the account, persists its
// fingerprint, and mails the raw token inside a verification link. The
// token record is durable before the raw token is disclosed to the mail
// transport, so a delivered link is always redeemable. If delivery fails
// the error is returned and the record is left to expire on its own.
func (s *MagicLinkService) Issue(ctx context.Context, account *Account) error {
	if account == nil {
		return oops.Code("AUTH_ISSUE_FAILED").Errorf("account is required")
	}

	raw, fingerprint, err := GenerateLoginToken()
	if err != nil {
		return oops.Code("AUTH_ISSUE_FAILED").
			With("operation", "generate login token").
			Wrap(err)
	}

	expiresAt := s.now().Add(s.tokenTTL)
	token, err := NewLoginToken(account.ID, fingerprint, expiresAt)
	if err != nil {
		return oops.Code("AUTH_ISSUE_FAILED").
			With("operation", "build login token").
			Wrap(err)
	}

	if err := s.tokens.Create(ctx, token); err != nil {
		return oops.Code("AUTH_ISSUE_FAILED").
			With("operation", "persist login token").
			Wrap(err)
	}

	s.recordAudit(ctx, audit.ActorClient, account.ID.String(), audit.ActionMagicLinkRequested, map[string]any{
		"email":      account.Email,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	link := s.verifyLink(raw)
	messageID, err := s.mail.SendMagicLink(ctx, account.Email, account.OrgName, link)
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("operation", "send magic link").
			Wrap(err)
	}

	s.logger.Info("magic link issued",
		"account_id", account.ID.String(),
		"message_id", messageID,
		"expires_at", expiresAt,
	)
	return nil
}

// RequestLink is the sign-in entry point: resolve or provision the account,
// then issue a link to it.
func (s *MagicLinkService) RequestLink(ctx context.Context, email, orgName string) error {
	account, err := s.ResolveOrCreate(ctx, email, orgName)
	if err != nil {
		return err
	}
	return s.Issue(ctx, account)
}

// Verify consumes a presented raw token exactly once and promotes it into
// an authenticated identity. A wrong, already-consumed, or expired token
// all fail with the same ErrInvalidToken; concurrent presentations of one
// token succeed for exactly one caller, enforced by the repository's
// conditional update.
func (s *MagicLinkService) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, oops.Code("TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	now := s.now()
	token, err := s.tokens.Consume(ctx, FingerprintToken(rawToken), now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("TOKEN_INVALID").Wrap(ErrInvalidToken)
		}
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "consume login token").
			Wrap(err)
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		return nil, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "get account by id").
			With("account_id", token.AccountID.String()).
			Wrap(err)
	}

	if err := s.accounts.RecordLogin(ctx, account.ID, now); err != nil {
		// Login still succeeds; the timestamp is informational.
		errutil.LogWarn(s.logger, "record login timestamp failed", err)
	} else {
		at := now
		account.LastLoginAt = &at
	}

	s.recordAudit(ctx, audit.ActorClient, account.ID.String(), audit.ActionLoginSuccessful, map[string]any{
		"login_token_id": token.ID.String(),
	})

	return account.snapshot(), nil
}

// ResolveCredential resolves a session credential extracted from a request
// cookie back into an identity. The signer enforces signature and expiry;
// the account lookup confirms the subject still exists.
func (s *MagicLinkService) ResolveCredential(ctx context.Context, signer *CredentialSigner, value string) (*Identity, error) {
	accountID, err := signer.Parse(value)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("CREDENTIAL_UNKNOWN_ACCOUNT").Wrap(ErrInvalidCredential)
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	return account.snapshot(), nil
}

// SignOut records the end of a member session. The cookie itself is cleared
// by the HTTP layer; there is no server-side session row to delete.
func (s *MagicLinkService) SignOut(ctx context.Context, accountID ulid.ULID) {
	s.recordAudit(ctx, audit.ActorClient, accountID.String(), audit.ActionLogout, nil)
}

// verifyLink builds the magic link the member clicks.
func (s *MagicLinkService) verifyLink(rawToken string) string {
	return fmt.Sprintf("%s/members/verify?token=%s", s.baseURL, url.QueryEscape(rawToken))
}

// recordAudit is the narrow best-effort boundary around audit writes: any
// failure is logged and dropped so auditing never becomes an availability
// dependency for the login path.
func (s *MagicLinkService) recordAudit(ctx context.Context, kind audit.ActorKind, actorID, action string, meta map[string]any) {
	if err := s.recorder.Record(ctx, kind, actorID, action, meta); err != nil {
		errutil.LogWarn(s.logger, "audit write failed", err)
	}
}
