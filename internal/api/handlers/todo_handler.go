package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/models"
	"github.com/avren/tasklist-be/internal/services"
)

// TodoHandler handles HTTP requests for todo items. Every operation
// runs the same guard sequence: resolve the token subject to a user
// record, then let the service enforce ownership on the resource.
type TodoHandler struct {
	todos services.TodoServiceProvider
	users services.UserServiceProvider
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todos services.TodoServiceProvider, users services.UserServiceProvider) *TodoHandler {
	return &TodoHandler{todos: todos, users: users}
}

// TodoPayload defines the structure for create and update requests.
// There is deliberately no owner field; the owner always comes from the
// authenticated identity.
type TodoPayload struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TodoResponse is the API shape of a todo item.
type TodoResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func toTodoResponse(t models.Todo) TodoResponse {
	return TodoResponse{ID: t.ID, Title: t.Title, Completed: t.Completed}
}

// currentUser resolves the verified token subject to a user record.
// When it fails it has already written the response.
func (h *TodoHandler) currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return models.User{}, false
	}

	user, err := h.users.GetUserByUsername(claims.Subject)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// Token subject no longer resolves to an account.
			respondError(w, http.StatusBadRequest, "user not found")
			return models.User{}, false
		}
		log.Error().Err(err).Str("subject", claims.Subject).Msg("Failed to resolve token subject")
		respondError(w, http.StatusInternalServerError, "failed to resolve user")
		return models.User{}, false
	}
	return user, true
}

func (h *TodoHandler) writeTodoError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, services.ErrTodoNotFound):
		respondError(w, http.StatusNotFound, "todo not found")
	case errors.Is(err, services.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not allowed to access this todo")
	default:
		log.Error().Err(err).Str("op", op).Msg("Todo operation failed")
		respondError(w, http.StatusInternalServerError, "failed to "+op+" todo")
	}
}

// GetAll handles the request to list the caller's todos.
func (h *TodoHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	todos, err := h.todos.ListByOwner(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list todos")
		respondError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}

	out := make([]TodoResponse, 0, len(todos))
	for _, t := range todos {
		out = append(out, toTodoResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

// Get handles the request to get a single todo by its ID.
func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	todo, err := h.todos.GetForOwner(r.Context(), id, user.ID)
	if err != nil {
		h.writeTodoError(w, err, "get")
		return
	}
	respondJSON(w, http.StatusOK, toTodoResponse(todo))
}

// Create handles the request to create a new todo for the caller.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var payload TodoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo, err := h.todos.Create(r.Context(), user.ID, payload.Title, payload.Completed)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create todo")
		respondError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}
	respondJSON(w, http.StatusOK, toTodoResponse(todo))
}

// Update handles the request to update an existing todo.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	var payload TodoPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required")
		return
	}

	todo, err := h.todos.UpdateForOwner(r.Context(), id, user.ID, payload.Title, payload.Completed)
	if err != nil {
		h.writeTodoError(w, err, "update")
		return
	}
	respondJSON(w, http.StatusOK, toTodoResponse(todo))
}

// Delete handles the request to delete a todo.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid todo id")
		return
	}

	if err := h.todos.DeleteForOwner(r.Context(), id, user.ID); err != nil {
		h.writeTodoError(w, err, "delete")
		return
	}
	respondMessage(w, http.StatusOK, "todo deleted successfully")
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
