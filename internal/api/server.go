// Package api exposes daemon control over HTTP. Mutating endpoints are
// guarded by a shared-secret token; health and metrics are open for
// scrapers.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ward/internal/config"
	"ward/internal/logging"
	"ward/internal/metrics"
	"ward/internal/pipeline"
	"ward/internal/store"
)

const tokenHeader = "X-Ward-Token"

// RunTrigger starts a pipeline run. The daemon wires this to the runner;
// tests substitute fakes.
type RunTrigger interface {
	Run(ctx context.Context, kind store.Kind, opts pipeline.Options) (*pipeline.Summary, error)
}

// Server is the daemon's HTTP control surface.
type Server struct {
	cfg     *config.Config
	trigger RunTrigger
	store   *store.Store
	logger  *slog.Logger

	httpServer *http.Server
	listener   net.Listener

	mu      sync.Mutex
	running bool
}

// NewServer builds the HTTP server. It does not start listening.
func NewServer(cfg *config.Config, trigger RunTrigger, st *store.Store, logger *slog.Logger) (*Server, error) {
	if trigger == nil {
		return nil, errors.New("api server requires a run trigger")
	}
	if strings.TrimSpace(cfg.API.Token) == "" {
		return nil, errors.New("api token must be configured")
	}

	s := &Server{
		cfg:     cfg,
		trigger: trigger,
		store:   st,
		logger:  logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/runs", s.requireToken(s.handleRuns))
	mux.HandleFunc("/v1/runs/latest", s.requireToken(s.handleLatestRun))
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start binds the configured address and serves until Close.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return err
	}
	s.listener = listener
	s.running = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http serve failed", logging.Error(err))
		}
	}()
	s.logger.Info("api listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close shuts the server down, draining in-flight requests.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

// requireToken rejects requests without the shared secret. Comparison is
// constant time.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(tokenHeader)
		expected := s.cfg.API.Token
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			s.logger.Warn("rejected request with bad token",
				logging.String("path", r.URL.Path),
				logging.String("remote", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	kind := store.KindDailyBrief
	if raw := strings.TrimSpace(query.Get("kind")); raw != "" {
		parsed, ok := store.ParseKind(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown run kind "+strconv.Quote(raw))
			return
		}
		kind = parsed
	}

	opts := pipeline.Options{}
	if raw := query.Get("force"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		opts.Force = force
	}
	if raw := strings.TrimSpace(query.Get("neighborhood")); raw != "" {
		opts.Only = strings.Split(raw, ",")
	}
	if raw := strings.TrimSpace(query.Get("batch")); raw != "" {
		batch, err := strconv.Atoi(raw)
		if err != nil || batch <= 0 {
			writeError(w, http.StatusBadRequest, "batch must be a positive integer")
			return
		}
		opts.BatchSize = batch
	}

	summary, err := s.trigger.Run(r.Context(), kind, opts)
	if err != nil {
		s.logger.Error("triggered run failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	kind := store.KindDailyBrief
	if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
		kind = store.Kind(raw)
	}

	run, err := s.store.LatestRun(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}

	payload := map[string]any{
		"id":         run.ID,
		"kind":       run.Kind,
		"started_at": run.StartedAt,
	}
	if run.FinishedAt != nil {
		payload["finished_at"] = *run.FinishedAt
	}
	if run.SummaryJSON != "" {
		payload["summary"] = json.RawMessage(run.SummaryJSON)
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
