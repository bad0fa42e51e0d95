// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NYU Libraries

// Package api implements the authorization sidecar: a small HTTP
// service the repository application calls to evaluate record
// permissions and obtain search filter clauses.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/nyudlts/ultraviolet-access/internal/access/policy"
	"github.com/nyudlts/ultraviolet-access/internal/logging"
	"github.com/nyudlts/ultraviolet-access/internal/observability"
	"github.com/nyudlts/ultraviolet-access/internal/secretlink"
)

// Server serves the authorization endpoints. Policies are immutable
// after construction; the server is safe for concurrent requests.
type Server struct {
	addr     string
	policies map[string]*policy.Policy
	signer   *secretlink.Signer
	metrics  *observability.Metrics

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithSigner enables secret link token verification. Without a signer,
// link tokens in requests are rejected.
func WithSigner(s *secretlink.Signer) Option {
	return func(srv *Server) { srv.signer = s }
}

// WithMetrics wires the observability metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// NewServer creates the sidecar serving all policy profiles.
// addr: listen address in "host:port" format.
func NewServer(addr string, opts ...Option) *Server {
	policies := make(map[string]*policy.Policy)
	for _, name := range policy.Names() {
		p, err := policy.ByName(name)
		if err != nil {
			// Names() and ByName() are built from the same table; a
			// mismatch is a code bug that should fail fast.
			panic("api: policy registry inconsistent: " + err.Error())
		}
		policies[name] = p
	}

	s := &Server{
		addr:     addr,
		policies: policies,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins serving. It returns an error channel that receives any
// error from the HTTP server after it starts; the channel closes when
// the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.In("api").Errorf("authz server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.In("api").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/check", s.withRequestID("check", s.handleCheck))
	mux.HandleFunc("POST /v1/filter", s.withRequestID("filter", s.handleFilter))

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("authz server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("authz server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.In("api").With("operation", "shutdown").Wrap(err)
		}
	}

	slog.Info("authz server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// withRequestID assigns each request a ULID, threads it through the
// context for logging, and records the request metric.
func (s *Server) withRequestID(route string, next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Make().String()
		w.Header().Set("X-Request-Id", requestID)
		ctx := logging.WithRequestID(r.Context(), requestID)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r.WithContext(ctx))

		if s.metrics != nil {
			s.metrics.RequestsTotal.WithLabelValues(route, http.StatusText(rw.status)).Inc()
		}
	}
}

// statusWriter captures the response status for metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
