package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/services"
	ws "github.com/avren/tasklist-be/internal/websocket"
)

// WebSocketHandler upgrades HTTP connections to the todo-change event
// feed. Browsers cannot set an Authorization header on websocket
// upgrades, so the token travels in a query parameter and is verified
// here before the upgrade.
type WebSocketHandler struct {
	hub    *ws.Hub
	tokens *auth.TokenService
	users  services.UserServiceProvider
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, tokens *auth.TokenService, users services.UserServiceProvider) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tokens: tokens, users: users}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (consider tightening this in production).
		return true
	},
}

// Serve handles the WebSocket connection request.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	subject, err := h.tokens.ExtractSubject(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Invalid auth token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUserByUsername(subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to resolve user", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, user.ID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
