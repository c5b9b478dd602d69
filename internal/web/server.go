// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Remova Inc.

// Package web exposes the member portal's HTTP surface: magic-link sign-in,
// verification, identity lookup, and sign-out.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/removahq/portal/internal/auth"
	"github.com/removahq/portal/internal/observability"
)

// SessionCookieName is the cookie carrying the member session credential.
const SessionCookieName = "remova_session"

// AuthService is the slice of the auth layer the handlers need. It is
// satisfied by *auth.MagicLinkService and by test fakes.
type AuthService interface {
	RequestLink(ctx context.Context, email, orgName string) error
	Verify(ctx context.Context, rawToken string) (*auth.Identity, error)
	ResolveCredential(ctx context.Context, signer *auth.CredentialSigner, value string) (*auth.Identity, error)
	SignOut(ctx context.Context, accountID ulid.ULID)
}

var _ AuthService = (*auth.MagicLinkService)(nil)

// Config carries the HTTP server settings.
type Config struct {
	// Addr is the listen address, e.g. ":6161".
	Addr string

	// Production controls the Secure flag on the session cookie.
	Production bool
}

// Server is the portal HTTP server.
type Server struct {
	cfg        Config
	service    AuthService
	signer     *auth.CredentialSigner
	metrics    *observability.Metrics
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates the portal HTTP server. metrics may be nil, in which
// case no counters are recorded.
func NewServer(cfg Config, service AuthService, signer *auth.CredentialSigner, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if signer == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("credential signer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:     cfg,
		service: service,
		signer:  signer,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Router builds the route table. Exposed so tests can drive handlers through
// httptest without binding a socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger)

	r.HandleFunc("/api/members/signin", s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/members/verify", s.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/api/members/signout", s.handleSignOut).Methods(http.MethodPost)

	// Session-gated routes carry the middleware per route. A PathPrefix
	// subrouter over /api/members would also match the public endpoints
	// above and turn their method mismatches into its own 404s.
	r.Handle("/api/members/me", s.requireSession(http.HandlerFunc(s.handleMe))).Methods(http.MethodGet)

	return r
}

// Start binds the listen address and serves requests. The returned channel
// receives any serve error and is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
