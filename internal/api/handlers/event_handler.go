package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/models"
	"github.com/avren/tasklist-be/internal/services"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// parseLimit reads the ?limit query value, falling back to the default
// on garbage and clamping oversized requests.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}

// EventHandler handles HTTP requests for the caller's activity log.
type EventHandler struct {
	events services.EventServiceProvider
	users  services.UserServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events services.EventServiceProvider, users services.UserServiceProvider) *EventHandler {
	return &EventHandler{events: events, users: users}
}

// GetRecent handles the request to get the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := h.users.GetUserByUsername(claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			respondError(w, http.StatusBadRequest, "user not found")
			return
		}
		log.Error().Err(err).Str("subject", claims.Subject).Msg("Failed to resolve token subject")
		respondError(w, http.StatusInternalServerError, "failed to resolve user")
		return
	}

	events, err := h.events.GetRecentForUser(user.ID, parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve events")
		respondError(w, http.StatusInternalServerError, "failed to retrieve events")
		return
	}

	if events == nil {
		events = []models.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}
