package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	middlewares "github.com/PolyRides/firefunction-postsAnalyze/internal/middleware"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/pipeline"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/store"
)

// PollRunner triggers one poll cycle
type PollRunner interface {
	PollOnce(ctx context.Context) (pipeline.Summary, error)
}

// SweepRunner triggers expiry sweeps
type SweepRunner interface {
	SweepPosts(ctx context.Context) (int, error)
	SweepRides(ctx context.Context) (int, error)
}

// Handler handles HTTP requests for the API
type Handler struct {
	store        store.Store
	poller       PollRunner
	sweeper      SweepRunner
	adminCfg     config.AdminConfig
	version      string
	buildTime    string
	gitCommit    string
	modelVersion string
	startTime    time.Time
}

// NewHandler creates a new API handler
func NewHandler(st store.Store, poller PollRunner, sweeper SweepRunner, adminCfg config.AdminConfig, version, buildTime, gitCommit, modelVersion string) *Handler {
	return &Handler{
		store:        st,
		poller:       poller,
		sweeper:      sweeper,
		adminCfg:     adminCfg,
		version:      version,
		buildTime:    buildTime,
		gitCommit:    gitCommit,
		modelVersion: modelVersion,
		startTime:    time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		// Control endpoints
		r.Post("/poll", h.pollHandler)
		r.Post("/sweep", h.sweepHandler)

		// Read endpoints
		r.Get("/rides", h.getRidesHandler)
		r.Get("/rides/{id}", h.getRideHandler)
		r.Get("/posts", h.getPostsHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Admin routes (protected by shared secret middleware)
	r.Route("/v1/admin", func(r chi.Router) {
		r.With(middlewares.AdminSecret(h.adminCfg)).Group(func(r chi.Router) {
			r.Post("/seed", h.seedHandler)
		})
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":       h.version,
		"build_time":    h.buildTime,
		"git_commit":    h.gitCommit,
		"model_version": h.modelVersion,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// pollHandler handles POST /poll: runs one poll cycle against the
// feed. Partial per-post failures still return 200 with counts; an
// unparsable or unreachable feed surfaces as 502.
func (h *Handler) pollHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.poller.PollOnce(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Poll failed", "error", err)
		if apperrors.IsFeedFetch(err) {
			h.writeErrorResponse(w, r, http.StatusBadGateway, "feed fetch failed")
			return
		}
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, summary)
}

// sweepHandler handles POST /sweep: prunes expired posts and rides
func (h *Handler) sweepHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	postsDeleted, err := h.sweeper.SweepPosts(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Post sweep failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	ridesDeleted, err := h.sweeper.SweepRides(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Ride sweep failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"status":        "DONE",
		"posts_deleted": postsDeleted,
		"rides_deleted": ridesDeleted,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// getRidesHandler handles GET /rides
func (h *Handler) getRidesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseRideQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rides, err := h.store.QueryRides(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query rides", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      rides,
		"count":     len(rides),
		"timestamp": time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// getRideHandler handles GET /rides/{id}
func (h *Handler) getRideHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rideID := chi.URLParam(r, "id")

	if rideID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "ride ID is required")
		return
	}

	ride, err := h.store.GetRide(ctx, rideID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get ride", "error", err, "ride_id", rideID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if ride == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Ride not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, ride)
}

// getPostsHandler handles GET /posts
func (h *Handler) getPostsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parsePostQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := h.store.QueryPosts(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query posts", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      posts,
		"count":     len(posts),
		"timestamp": time.Now().UTC(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// parseRideQuery parses query parameters into RideQuery
func (h *Handler) parseRideQuery(r *http.Request) (models.RideQuery, error) {
	q := models.RideQuery{}

	limit, offset, since, until, err := parsePagination(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset, q.Since, q.Until = limit, offset, since, until

	q.ReferenceIDs = r.URL.Query()["reference_id"]
	q.Destinations = r.URL.Query()["destination"]
	for _, s := range r.URL.Query()["status"] {
		switch models.PostStatus(s) {
		case models.PostStatusRideOffer, models.PostStatusRideSeeking:
			q.Statuses = append(q.Statuses, models.PostStatus(s))
		default:
			return q, fmt.Errorf("invalid status: %s", s)
		}
	}

	return q, nil
}

// parsePostQuery parses query parameters into PostQuery
func (h *Handler) parsePostQuery(r *http.Request) (models.PostQuery, error) {
	q := models.PostQuery{}

	limit, offset, since, until, err := parsePagination(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset, q.Since, q.Until = limit, offset, since, until

	q.IDs = r.URL.Query()["id"]

	return q, nil
}

func parsePagination(r *http.Request) (limit, offset int, since, until time.Time, err error) {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > 1000 {
			return 0, 0, since, until, fmt.Errorf("limit must be between 0 and 1000")
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid offset: %s", offsetStr)
		}
		if offset < 0 {
			return 0, 0, since, until, fmt.Errorf("offset must be non-negative")
		}
	}

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err = time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid since format: %s", sinceStr)
		}
	}

	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		until, err = time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid until format: %s", untilStr)
		}
	}

	return limit, offset, since, until, nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
