// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the recommendation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/extract"
	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/internal/metrics"
	"github.com/pdiddy/travel-recommender/internal/validation"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

const maxBodyBytes = 64 << 10

// Recommender runs one query through the pipeline.
type Recommender interface {
	Run(ctx context.Context, input string) *types.PipelineState
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// RecommendationRequest is the body of POST /api/v1/recommendations.
type RecommendationRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

// Server is the HTTP front end.
type Server struct {
	cfg         types.ServerConfig
	recommender Recommender
	checks      map[string]Check
	logger      zerolog.Logger
}

// New returns a Server. checks are run by the health endpoint.
func New(cfg types.ServerConfig, recommender Recommender, checks map[string]Check, logger zerolog.Logger) *Server {
	return &Server{
		cfg:         cfg,
		recommender: recommender,
		checks:      checks,
		logger:      logging.WithComponent(logger, "server"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Group(func(r chi.Router) {
			if s.cfg.RequestsPerMin > 0 {
				r.Use(httprate.LimitByIP(s.cfg.RequestsPerMin, time.Minute))
			}
			r.Post("/recommendations", s.handleRecommend)
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down within the
// configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state := s.recommender.Run(r.Context(), req.Query)
	status := http.StatusOK
	if state.Status == types.StatusError {
		switch {
		case extract.IsUnavailable(state.Err):
			status = http.StatusServiceUnavailable
		case errors.Is(state.Err, types.ErrExtraction):
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, state.Response)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := s.checks[name](r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// requestLogger carries the chi request id into the context used by the
// pipeline and logs each request once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id == "" {
			id = logging.NewRequestID()
		}
		r = r.WithContext(logging.ContextWithRequestID(r.Context(), id))

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.logger.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("route", route).
			Int("status", code).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
