package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lueurxax/storypulse/internal/core/domain"
	apperrors "github.com/lueurxax/storypulse/internal/core/errors"
	db "github.com/lueurxax/storypulse/internal/storage"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	defaultListLimit  = 50
	maxListLimit      = 200
)

// PassRunner triggers one engine pass on demand.
type PassRunner interface {
	RunPass(ctx context.Context) (domain.PassReport, error)
}

// Server exposes health, metrics, the pass trigger and the cluster read API.
type Server struct {
	db     *db.DB
	runner PassRunner
	port   int
	logger *zerolog.Logger
}

func NewServer(database *db.DB, runner PassRunner, port int, logger *zerolog.Logger) *Server {
	return &Server{
		db:     database,
		runner: runner,
		port:   port,
		logger: logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := s.db.Pool.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "DB error: %v", err)

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Post("/run", s.handleRun)
	r.Get("/clusters", s.handleListClusters)
	r.Get("/clusters/{key}/summary", s.handleClusterSummary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("HTTP server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

func (s *Server) handleRun(w http.ResponseWriter, req *http.Request) {
	report, err := s.runner.RunPass(req.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrPassInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})

			return
		}

		s.logger.Error().Err(err).Msg("triggered pass failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListClusters(w http.ResponseWriter, req *http.Request) {
	filter := db.ClusterFilter{Limit: defaultListLimit}

	q := req.URL.Query()
	if category := q.Get("category"); category != "" {
		filter.Category = category
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})

			return
		}

		filter.Limit = limit
	}

	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})

			return
		}

		filter.Since = since
	}

	clusters, err := s.db.ListClusters(req.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("list clusters failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error"})

		return
	}

	writeJSON(w, http.StatusOK, clusters)
}

func (s *Server) handleClusterSummary(w http.ResponseWriter, req *http.Request) {
	key := chi.URLParam(req, "key")

	summary, err := s.db.GetSummary(req.Context(), key)
	if err != nil {
		if errors.Is(err, apperrors.ErrSummaryNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "summary not found"})

			return
		}

		s.logger.Error().Err(err).Str("cluster_key", key).Msg("get summary failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage error"})

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
