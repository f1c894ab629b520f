// Package httpapi exposes the database API over plain net/http +
// encoding/json: insert, get, delete, and per-zone stats, with bearer
// JWT authentication, TLS, and per-remote-address rate limiting.
package httpapi

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"ozonedb/internal/auth"
	"ozonedb/internal/db"
	"ozonedb/internal/logging"
	"ozonedb/internal/notify"
)

// CertManager is the TLS surface consumed from package cert.
type CertManager interface {
	GetCertificate(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error)
	TLSConfig() *tls.Config
}

// Config holds server configuration.
type Config struct {
	Logger      *slog.Logger
	CertManager CertManager // nil disables HTTPS
	Tokens      *auth.TokenService
	NoAuth      bool // disables bearer auth entirely, for local/dev use
}

// Server is the HTTP surface over one DB.
type Server struct {
	db          *db.DB
	tokens      *auth.TokenService
	certManager CertManager
	noAuth      bool
	logger      *slog.Logger
	startTime   time.Time

	rl *rateLimiter

	mu       sync.Mutex
	server   *http.Server
	draining atomic.Bool
	inFlight sync.WaitGroup
	drained  *notify.Signal
}

// New creates a Server over db for the given configuration.
func New(database *db.DB, cfg Config) *Server {
	return &Server{
		db:          database,
		tokens:      cfg.Tokens,
		certManager: cfg.CertManager,
		noAuth:      cfg.NoAuth,
		logger:      logging.Default(cfg.Logger).With("component", "httpapi"),
		startTime:   time.Now(),
		rl:          newRateLimiter(20.0/60.0, 10),
		drained:     notify.NewSignal(),
	}
}

// Handler builds the full middleware-wrapped mux, for embedding or
// testing without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /v1/keys", s.handleInsert)
	mux.HandleFunc("GET /v1/keys/{key}", s.handleGet)
	mux.HandleFunc("DELETE /v1/keys/{key}", s.handleDelete)
	mux.HandleFunc("GET /v1/zones", s.handleZoneStates)

	var h http.Handler = mux
	h = s.authMiddleware(h)
	h = rateLimitMiddleware(s.rl)(h)
	h = s.trackingMiddleware(h)
	return h
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// trackingMiddleware tracks in-flight requests so Stop can drain them,
// and rejects new requests once draining has begun.
func (s *Server) trackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.draining.Load() {
			http.Error(w, "server is draining", http.StatusServiceUnavailable)
			return
		}
		s.inFlight.Add(1)
		defer s.inFlight.Done()
		next.ServeHTTP(w, r)
	})
}

// ServeTCP starts the server on addr, serving HTTPS when a CertManager
// is configured and HTTP otherwise. It blocks until Stop is called.
func (s *Server) ServeTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve starts the server on an already-bound listener.
func (s *Server) Serve(ln net.Listener) error {
	handler := s.Handler()
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if s.certManager != nil {
		tlsCfg := s.certManager.TLSConfig()
		tlsCfg.MinVersion = tls.VersionTLS12
		ln = tls.NewListener(ln, tlsCfg)
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("httpapi server starting", "addr", ln.Addr().String(), "tls", s.certManager != nil)
	err := srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests (if drain is true) then shuts down the
// listener.
func (s *Server) Stop(ctx context.Context, drain bool) error {
	if drain {
		s.logger.Info("httpapi draining")
		s.draining.Store(true)
		s.inFlight.Wait()
		s.drained.Notify()
	}
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Drained returns a channel closed once a drain initiated by Stop(ctx,
// true) has finished waiting for in-flight requests.
func (s *Server) Drained() <-chan struct{} {
	return s.drained.C()
}
