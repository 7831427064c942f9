package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"signalwatch/internal/config"
	"signalwatch/internal/digest"
	"signalwatch/internal/logging"
	"signalwatch/internal/stage"
	"signalwatch/internal/store"
)

// Runner is the pipeline surface the API needs.
type Runner interface {
	Run(ctx context.Context, trigger store.Trigger) (*store.Run, error)
	RetryVideo(ctx context.Context, videoID string) (*store.Video, error)
	Health(ctx context.Context) []stage.Health
}

// Server hosts the HTTP interface.
type Server struct {
	bind    string
	logger  *slog.Logger
	store   *store.Store
	runner  Runner
	digests *digest.Builder

	listener net.Listener
	server   *http.Server
}

// NewServer wires the HTTP interface. Returns nil when no bind address is
// configured.
func NewServer(cfg *config.Config, st *store.Store, runner Runner, digests *digest.Builder, logger *slog.Logger) *Server {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:    bind,
		logger:  logger.With(logging.String(logging.FieldComponent, "api-server")),
		store:   st,
		runner:  runner,
		digests: digests,
	}
	srv.server = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler builds the route table. Exposed so tests can drive the mux
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /channels", s.handleChannels)
	mux.HandleFunc("GET /videos", s.handleVideos)
	mux.HandleFunc("GET /videos/{id}", s.handleVideo)
	mux.HandleFunc("GET /videos/{id}/transcript", s.handleTranscript)
	mux.HandleFunc("POST /videos/{id}/retry", s.handleRetry)
	mux.HandleFunc("GET /digests/latest", s.handleLatestDigest)
	mux.HandleFunc("GET /digests/{date}", s.handleDigest)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /poll", s.handlePoll)
	return mux
}

// Start begins serving until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listener address once started.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
