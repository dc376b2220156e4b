package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// SeedRequest carries fixture records for local and staging
// environments. Profiles without an id are assigned one.
type SeedRequest struct {
	Posts    []models.RawPost       `json:"posts,omitempty"`
	Rides    []models.ProcessedRide `json:"rides,omitempty"`
	Profiles []models.RiderProfile  `json:"profiles,omitempty"`
}

// seedHandler handles POST /admin/seed
func (h *Handler) seedHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()

	postsLoaded := 0
	for _, post := range req.Posts {
		if post.ID == "" {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "post id is required")
			return
		}
		if post.FetchedAt.IsZero() {
			post.FetchedAt = now
		}
		if _, err := h.store.UpsertPost(ctx, post); err != nil {
			logger.WithContext(ctx).Error("Failed to seed post", "post_id", post.ID, "error", err)
			h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
			return
		}
		postsLoaded++
	}

	ridesLoaded := 0
	for _, ride := range req.Rides {
		if ride.ReferenceID == "" {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "ride reference_id is required")
			return
		}
		if ride.CreatedAt.IsZero() {
			ride.CreatedAt = now
		}
		if err := h.store.UpsertRide(ctx, ride); err != nil {
			logger.WithContext(ctx).Error("Failed to seed ride", "reference_id", ride.ReferenceID, "error", err)
			h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
			return
		}
		ridesLoaded++
	}

	profilesLoaded := 0
	for _, profile := range req.Profiles {
		if profile.ID == "" {
			profile.ID = uuid.New().String()
		}
		if profile.Destination == "" {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "profile destination is required")
			return
		}
		if err := h.store.UpsertProfile(ctx, profile); err != nil {
			logger.WithContext(ctx).Error("Failed to seed profile", "profile_id", profile.ID, "error", err)
			h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
			return
		}
		profilesLoaded++
	}

	response := map[string]interface{}{
		"status":          "ok",
		"posts_loaded":    postsLoaded,
		"rides_loaded":    ridesLoaded,
		"profiles_loaded": profilesLoaded,
		"timestamp":       now,
	}

	h.writeJSONResponse(w, http.StatusCreated, response)
}
