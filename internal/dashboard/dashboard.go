// Package dashboard serves the evaluation history web UI: run metrics, the
// run table joined with ingestion configs, per-run detail views, and the
// human verification workflow.
// It is started by the `aeros dashboard` CLI command.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aerostream/aeros/internal/evalstore"
)

// Config holds the dashboard server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8501).
	Port int
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
}

// Server renders evaluation history from the evalstore.
type Server struct {
	store      *evalstore.Store
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
}

// indexRow pairs a run with a rendered summary of its ingestion config.
type indexRow struct {
	Run           evalstore.Run
	IngestSummary string
}

// indexData is the template payload for the index view.
type indexData struct {
	Latest    *evalstore.Run
	TotalRuns int
	Rows      []indexRow
}

// runData is the template payload for the run detail view.
type runData struct {
	Run     evalstore.Run
	Details []evalstore.Detail
}

// New constructs a dashboard Server over the given store.
func New(store *evalstore.Store, cfg *Config, log *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("dashboard: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8501
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{store: store, cfg: cfg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /run", s.handleRun)
	mux.HandleFunc("POST /verify", s.handleVerify)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Start begins serving until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard: listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleIndex renders the run history table with summary metrics.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.Runs(r.Context())
	if err != nil {
		s.log.Error("dashboard: list runs failed", slog.Any("error", err))
		http.Error(w, "failed to load runs", http.StatusInternalServerError)
		return
	}

	data := indexData{TotalRuns: len(runs)}
	if len(runs) > 0 {
		data.Latest = &runs[0]
	}
	for _, run := range runs {
		data.Rows = append(data.Rows, indexRow{
			Run:           run,
			IngestSummary: s.ingestSummary(r.Context(), run.IngestionConfigID),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "index", data); err != nil {
		s.log.Error("dashboard: render index failed", slog.Any("error", err))
	}
}

// ingestSummary renders a one-line description of an ingestion config.
func (s *Server) ingestSummary(ctx context.Context, id int64) string {
	if id == 0 {
		return "—"
	}
	cfg, err := s.store.GetIngestionConfig(ctx, id)
	if err != nil {
		return "—"
	}
	if cfg.ChunkSize > 0 {
		return fmt.Sprintf("%s (chunk %d, overlap %d)", cfg.IngestionType, cfg.ChunkSize, cfg.Overlap)
	}
	return cfg.IngestionType
}

// handleRun renders the per-question detail view for one run.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	details, err := s.store.RunDetails(r.Context(), id)
	if err != nil {
		s.log.Error("dashboard: run details failed", slog.Any("error", err))
		http.Error(w, "failed to load run details", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, "run", runData{Run: run, Details: details}); err != nil {
		s.log.Error("dashboard: render run failed", slog.Any("error", err))
	}
}

// handleVerify toggles human verification on a detail row and redirects back
// to the run view.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	detailID, err := strconv.ParseInt(r.FormValue("detail_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid detail id", http.StatusBadRequest)
		return
	}
	verified := r.FormValue("verified") == "true"

	if err := s.store.SetVerified(r.Context(), detailID, verified); err != nil {
		s.log.Error("dashboard: set verified failed", slog.Any("error", err))
		http.Error(w, "failed to update verification", http.StatusInternalServerError)
		return
	}

	runID := r.FormValue("run_id")
	http.Redirect(w, r, "/run?id="+runID, http.StatusSeeOther)
}
