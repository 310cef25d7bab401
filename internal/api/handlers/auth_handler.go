package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/services"
)

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens *auth.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// CredentialsPayload defines the structure for register and login requests.
type CredentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Username == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if _, err := h.users.Register(payload.Username, payload.Password); err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			respondError(w, http.StatusBadRequest, "username taken")
			return
		}
		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to register user")
		respondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	respondMessage(w, http.StatusOK, "user registered successfully")
}

// Login handles user authentication and token issuance. An unknown
// username and a wrong password produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload CredentialsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
			respondError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		log.Error().Err(err).Msg("Authentication lookup failed")
		respondError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"token":    token,
		"username": user.Username,
	})
}

// Me retrieves the currently authenticated user from the token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
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
		log.Error().Err(err).Str("subject", claims.Subject).Msg("Failed to load current user")
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
