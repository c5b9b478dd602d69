// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/removahq/portal/internal/auth"
)

// fakeAuthService scripts the auth layer for handler tests.
type fakeAuthService struct {
	requestLinkErr error
	requestedEmail string
	requestedOrg   string

	verifyIdentity *auth.Identity
	verifyErr      error

	resolveIdentity *auth.Identity
	resolveErr      error

	signedOut []ulid.ULID
}

func (f *fakeAuthService) RequestLink(_ context.Context, email, orgName string) error {
	f.requestedEmail = email
	f.requestedOrg = orgName
	return f.requestLinkErr
}

func (f *fakeAuthService) Verify(_ context.Context, _ string) (*auth.Identity, error) {
	return f.verifyIdentity, f.verifyErr
}

func (f *fakeAuthService) ResolveCredential(_ context.Context, _ *auth.CredentialSigner, _ string) (*auth.Identity, error) {
	return f.resolveIdentity, f.resolveErr
}

func (f *fakeAuthService) SignOut(_ context.Context, accountID ulid.ULID) {
	f.signedOut = append(f.signedOut, accountID)
}

func newTestServer(t *testing.T, fake *fakeAuthService, production bool) *Server {
	t.Helper()

	signer, err := auth.NewCredentialSigner("0123456789abcdef0123456789abcdef", time.Hour, false)
	require.NoError(t, err)

	server, err := NewServer(Config{Addr: ":0", Production: production}, fake, signer, nil, nil)
	require.NoError(t, err)
	return server
}

func testIdentity() *auth.Identity {
	return &auth.Identity{
		ID:        ulid.Make(),
		Email:     "ops@example.com",
		OrgName:   "Example Corp",
		PlanTier:  auth.TierStealth,
		CreatedAt: time.Now().UTC(),
	}
}

func TestHandleSignIn_Success(t *testing.T) {
	fake := &fakeAuthService{}
	server := newTestServer(t, fake, false)

	req := httptest.NewRequest(http.MethodPost, "/api/members/signin",
		strings.NewReader(`{"email":"ops@example.com","orgName":"Example Corp"}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "ops@example.com", fake.requestedEmail)
	assert.Equal(t, "Example Corp", fake.requestedOrg)
}

func TestHandleSignIn_FailuresAreUniform(t *testing.T) {
	// Every failure shape must produce byte-identical responses so the
	// endpoint cannot confirm whether an email has an account.
	shapes := []struct {
		name string
		body string
		err  error
	}{
		{name: "unknown email", body: `{"email":"ghost@example.com"}`, err: auth.ErrAccountNotFound},
		{name: "internal error", body: `{"email":"ops@example.com"}`, err: oops.Errorf("db down")},
		{name: "mail failure", body: `{"email":"ops@example.com"}`, err: oops.Code("MAIL_SEND_FAILED").Errorf("relay down")},
		{name: "malformed json", body: `{`},
		{name: "missing email", body: `{}`},
	}

	var bodies []string
	var statuses []int
	for _, shape := range shapes {
		t.Run(shape.name, func(t *testing.T) {
			fake := &fakeAuthService{requestLinkErr: shape.err}
			server := newTestServer(t, fake, false)

			req := httptest.NewRequest(http.MethodPost, "/api/members/signin", strings.NewReader(shape.body))
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			bodies = append(bodies, rec.Body.String())
			statuses = append(statuses, rec.Code)
		})
	}

	for i := 1; i < len(bodies); i++ {
		assert.Equal(t, bodies[0], bodies[i], "failure bodies must be identical")
		assert.Equal(t, statuses[0], statuses[i], "failure statuses must be identical")
	}
	assert.Equal(t, http.StatusOK, statuses[0])
}

func TestHandleVerify_Success(t *testing.T) {
	identity := testIdentity()
	fake := &fakeAuthService{verifyIdentity: identity}
	server := newTestServer(t, fake, true)

	req := httptest.NewRequest(http.MethodGet, "/members/verify?token=abc", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/members/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure, "secure in production")
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
}

func TestHandleVerify_InvalidToken(t *testing.T) {
	fake := &fakeAuthService{verifyErr: oops.Wrap(auth.ErrInvalidToken)}
	server := newTestServer(t, fake, false)

	req := httptest.NewRequest(http.MethodGet, "/members/verify?token=bogus", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/members/login?error=invalid_token", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies(), "no session on failure")
}

func TestHandleMe(t *testing.T) {
	identity := testIdentity()

	t.Run("authenticated", func(t *testing.T) {
		fake := &fakeAuthService{resolveIdentity: identity}
		server := newTestServer(t, fake, false)

		req := httptest.NewRequest(http.MethodGet, "/api/members/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "credential"})
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var got auth.Identity
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, identity.ID, got.ID)
		assert.Equal(t, identity.Email, got.Email)
	})

	t.Run("no cookie", func(t *testing.T) {
		server := newTestServer(t, &fakeAuthService{resolveIdentity: identity}, false)

		req := httptest.NewRequest(http.MethodGet, "/api/members/me", nil)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid credential", func(t *testing.T) {
		fake := &fakeAuthService{resolveErr: oops.Wrap(auth.ErrInvalidCredential)}
		server := newTestServer(t, fake, false)

		req := httptest.NewRequest(http.MethodGet, "/api/members/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleSignOut(t *testing.T) {
	identity := testIdentity()

	t.Run("with valid session", func(t *testing.T) {
		fake := &fakeAuthService{resolveIdentity: identity}
		server := newTestServer(t, fake, false)

		req := httptest.NewRequest(http.MethodPost, "/api/members/signout", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "credential"})
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []ulid.ULID{identity.ID}, fake.signedOut)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Negative(t, cookies[0].MaxAge, "cookie cleared")
	})

	t.Run("without session still clears cookie", func(t *testing.T) {
		fake := &fakeAuthService{resolveErr: oops.Wrap(auth.ErrInvalidCredential)}
		server := newTestServer(t, fake, false)

		req := httptest.NewRequest(http.MethodPost, "/api/members/signout", nil)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, fake.signedOut)
		require.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestRouter_MethodRestrictions(t *testing.T) {
	// A wrong method on a known path must yield 405, not fall through to
	// another route's 404 or an auth check.
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/members/signin"},
		{http.MethodPost, "/members/verify"},
		{http.MethodGet, "/api/members/signout"},
		{http.MethodPost, "/api/members/me"},
	}

	server := newTestServer(t, &fakeAuthService{}, false)

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}
