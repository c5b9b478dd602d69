// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

package web

import (
	"encoding/json"
	"net/http"

	"github.com/removahq/portal/pkg/errutil"
)

// signInRequest is the JSON body of POST /api/members/signin.
type signInRequest struct {
	Email   string `json:"email"`
	OrgName string `json:"orgName,omitempty"`
}

// genericSignInFailure is the single failure body for the sign-in endpoint.
// Unknown email, malformed input, and internal errors all produce this exact
// response so the endpoint cannot be used to probe which emails have
// accounts.
var genericSignInFailure = map[string]any{
	"ok":    false,
	"error": "unable to send sign-in link",
}

// handleSignIn accepts an email (and, for signup, an organization name) and
// issues a magic link. The response is deliberately uniform: HTTP 200 with
// either {"ok":true} or the one generic failure body.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusOK, genericSignInFailure)
		return
	}

	if err := s.service.RequestLink(r.Context(), req.Email, req.OrgName); err != nil {
		errutil.LogWarn(s.logger, "sign-in link request failed", err)
		writeJSON(w, http.StatusOK, genericSignInFailure)
		return
	}

	if s.metrics != nil {
		s.metrics.LinksIssued.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleVerify redeems a magic-link token. Success mints the session cookie
// and lands the member on the dashboard; every failure shape redirects to
// the login page with the same error marker.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, err := s.service.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		errutil.LogWarn(s.logger, "token verification failed", err)
		s.countLogin("invalid_token")
		http.Redirect(w, r, "/members/login?error=invalid_token", http.StatusSeeOther)
		return
	}

	credential, err := s.signer.Mint(identity.ID)
	if err != nil {
		errutil.LogError(s.logger, "credential mint failed", err)
		s.countLogin("error")
		http.Redirect(w, r, "/members/login?error=invalid_token", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, s.sessionCookie(credential, int(s.signer.TTL().Seconds())))
	s.countLogin("success")
	http.Redirect(w, r, "/members/dashboard", http.StatusSeeOther)
}

// handleMe returns the authenticated member's identity. The session
// middleware has already resolved it.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not signed in"})
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// handleSignOut clears the session cookie. The audit record is keyed to the
// account when the presented credential still resolves; an already-invalid
// credential just gets the cookie cleared.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if identity, resolveErr := s.service.ResolveCredential(r.Context(), s.signer, cookie.Value); resolveErr == nil {
			s.service.SignOut(r.Context(), identity.ID)
		}
	}

	http.SetCookie(w, s.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// sessionCookie builds the session cookie with the portal's fixed
// attributes. maxAge -1 clears it.
func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // response write error means the client went away
	json.NewEncoder(w).Encode(body)
}
