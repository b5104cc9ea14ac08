// Package server provides the HTTP API for starting generation jobs and
// following them to completion.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/jonathan/site-generator/internal/config"
	"github.com/jonathan/site-generator/internal/db"
	"github.com/jonathan/site-generator/internal/jobs"
	"github.com/jonathan/site-generator/internal/server/middleware"
	"github.com/jonathan/site-generator/internal/server/ratelimit"
	"github.com/jonathan/site-generator/internal/types"
)

const maxRequestBody = 64 << 10

// JobRunner executes submitted jobs in the background.
type JobRunner interface {
	Submit(id string)
}

// SiteStore reads recorded sites. It is optional.
type SiteStore interface {
	GetSite(ctx context.Context, jobID string) (*db.Site, error)
	ListSites(ctx context.Context, filters db.SiteFilters) ([]db.Site, error)
}

// Deps are the collaborators of a Server. Hub, Sites, Tokens and Limiter may be nil.
type Deps struct {
	Config  *config.Config
	Store   jobs.Store
	Hub     *jobs.Hub
	Runner  JobRunner
	Sites   SiteStore
	Tokens  *TokenService
	Limiter *ratelimit.Limiter
	Version string
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	store      jobs.Store
	hub        *jobs.Hub
	runner     JobRunner
	sites      SiteStore
	tokens     *TokenService
	limiter    *ratelimit.Limiter
	version    string
	logger     arbor.ILogger

	now          func() time.Time
	resyncPeriod time.Duration
}

// New creates a server. Mutating routes require an operator token when
// deps.Tokens is set.
func New(deps Deps, logger arbor.ILogger) *Server {
	cfg := deps.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	s := &Server{
		cfg:          cfg,
		store:        deps.Store,
		hub:          deps.Hub,
		runner:       deps.Runner,
		sites:        deps.Sites,
		tokens:       deps.Tokens,
		limiter:      deps.Limiter,
		version:      deps.Version,
		logger:       logger,
		now:          time.Now,
		resyncPeriod: 2 * time.Second,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open until the job ends
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	var validator middleware.TokenValidator
	if s.tokens != nil {
		validator = s.tokens.AsTokenValidator()
	}
	requireOperator := middleware.AuthMiddleware(validator)

	mux := http.NewServeMux()
	mux.Handle("POST /jobs", requireOperator(http.HandlerFunc(s.handleCreateJob)))
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /jobs/{id}/data", s.handleGetJobData)
	mux.HandleFunc("GET /jobs/{id}/preview", s.handlePreview)
	mux.HandleFunc("GET /jobs/{id}/events", s.handleJobEvents)
	mux.HandleFunc("GET /jobs/{id}/ws", s.handleJobSocket)
	mux.Handle("DELETE /jobs/{id}", requireOperator(http.HandlerFunc(s.handleDeleteJob)))
	mux.HandleFunc("GET /sites", s.handleListSites)
	mux.HandleFunc("GET /sites/{job_id}", s.handleGetSite)
	mux.HandleFunc("GET /health", s.handleHealth)

	var h http.Handler = mux
	h = s.withCORS(h)
	h = s.withLogging(h)
	if s.limiter != nil {
		h = s.withRateLimit(h)
	}
	return h
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Server starting")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.logger.Info().Msg("Server stopped")
	return nil
}

// handleCreateJob validates a request, records a pending job and hands it to
// the runner. It returns before any stage runs.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, &ErrBadRequest{Message: "invalid JSON body", Cause: err})
		return
	}
	if err := req.Validate(); err != nil {
		fields := types.FieldErrors(err)
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":  (&ErrValidation{Fields: fields}).Error(),
			"fields": fields,
		})
		return
	}
	req.Normalize()

	job := jobs.NewJob(req, s.now().UTC())
	if err := s.store.Create(r.Context(), job); err != nil {
		s.writeError(w, err)
		return
	}
	s.runner.Submit(job.ID)

	operator, _ := middleware.GetOperator(r)
	s.logger.Info().
		Str("job_id", job.ID).
		Str("business", req.BusinessName).
		Str("operator", operator).
		Msg("Job accepted")

	w.Header().Set("Location", "/jobs/"+job.ID)
	s.jsonResponse(w, http.StatusAccepted, jobs.Project(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := jobs.ListOptions{Status: types.JobStatus(q.Get("status"))}
	if opts.Status != "" && !opts.Status.Valid() {
		s.writeError(w, &ErrBadRequest{Message: fmt.Sprintf("unknown status %q", opts.Status)})
		return
	}
	var err error
	if opts.Page, err = intParam(q.Get("page")); err != nil {
		s.writeError(w, &ErrBadRequest{Message: "page must be an integer", Cause: err})
		return
	}
	if opts.PageSize, err = intParam(q.Get("page_size")); err != nil {
		s.writeError(w, &ErrBadRequest{Message: "page_size must be an integer", Cause: err})
		return
	}
	opts = opts.Normalized()

	list, total, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]jobs.StatusView, 0, len(list))
	for _, job := range list {
		views = append(views, jobs.Project(job))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobs":      views,
		"total":     total,
		"page":      opts.Page,
		"page_size": opts.PageSize,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, jobs.Project(job))
}

// handleGetJobData returns the full job record including every stage payload.
func (s *Server) handleGetJobData(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if job.Artifact == nil || job.Artifact.HTML == "" {
		s.errorResponse(w, http.StatusNotFound, "site has not been generated yet")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, job.Artifact.HTML)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info().Str("job_id", id).Msg("Job deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		s.writeError(w, &ErrUnavailable{Service: "database"})
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, &ErrBadRequest{Message: "limit must be an integer", Cause: err})
		return
	}
	sites, err := s.sites.ListSites(r.Context(), db.SiteFilters{
		BusinessName: r.URL.Query().Get("business_name"),
		Limit:        limit,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if sites == nil {
		sites = []db.Site{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"sites": sites, "count": len(sites)})
}

func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	if s.sites == nil {
		s.writeError(w, &ErrUnavailable{Service: "database"})
		return
	}
	site, err := s.sites.GetSite(r.Context(), r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if site == nil {
		s.errorResponse(w, http.StatusNotFound, "site not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, site)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	services := s.cfg.ConfiguredServices()
	services["auth"] = s.tokens != nil
	services["rate_limit"] = s.limiter != nil
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"services": services,
	})
}

// withCORS adds CORS headers for the configured origins.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	if slices.Contains(s.cfg.CORSOrigins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(s.cfg.CORSOrigins, origin) {
		return origin
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.limiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// statusRecorder captures the response status for access logs. It forwards
// Flush and Hijack so event streams and socket upgrades still work.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status. Internal faults are logged and not echoed.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Request failed")
		msg = "internal server error"
	}
	s.errorResponse(w, status, msg)
}

// extractClientID uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn().
		Int("limit", info.Limit).
		Str("reset_at", info.ResetTime.Format(time.RFC3339)).
		Msg("Rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

func intParam(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
