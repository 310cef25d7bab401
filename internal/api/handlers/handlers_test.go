package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avren/tasklist-be/internal/api"
	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/database"
	"github.com/avren/tasklist-be/internal/services"
	"github.com/avren/tasklist-be/internal/websocket"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	todoService := services.NewTodoService(db, eventService, nil, hub)
	tokens := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), time.Hour)

	return api.NewRouter(hub, tokens, userService, todoService, eventService, db, "http://localhost:3000")
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, router http.Handler, username, password string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
}

func login(t *testing.T, router http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	decode(t, rec, &resp)
	if resp.Token == "" || resp.Username != username {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	return resp.Token
}

type todoResp struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func TestRegisterDuplicate(t *testing.T) {
	router := newTestRouter(t)

	register(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "pw2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["error"] != "username taken" {
		t.Fatalf("error = %q, want %q", resp["error"], "username taken")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong password login: status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["error"] != "invalid credentials" {
		t.Fatalf("error = %q, want %q", resp["error"], "invalid credentials")
	}

	// Unknown username yields the same response shape and status.
	rec = doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody", "password": "pw1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown user login: status = %d, want 400", rec.Code)
	}

	login(t, router, "alice", "pw1")
}

func TestTodosRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodGet, "/api/todos/1"},
		{http.MethodPut, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/1"},
		{http.MethodGet, "/api/events"},
		{http.MethodGet, "/api/auth/me"},
	} {
		rec := doJSON(t, router, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestTodoLifecycle(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")
	aliceToken := login(t, router, "alice", "pw1")

	// Create
	rec := doJSON(t, router, http.MethodPost, "/api/todos", aliceToken, map[string]interface{}{
		"title": "buy milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created todoResp
	decode(t, rec, &created)
	if created.ID != 1 || created.Title != "buy milk" || created.Completed {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	// Get
	rec = doJSON(t, router, http.MethodGet, "/api/todos/1", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var got todoResp
	decode(t, rec, &got)
	if got.ID != 1 || got.Title != "buy milk" {
		t.Fatalf("unexpected todo: %+v", got)
	}

	// Update
	rec = doJSON(t, router, http.MethodPut, "/api/todos/1", aliceToken, map[string]interface{}{
		"title": "buy oat milk", "completed": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated todoResp
	decode(t, rec, &updated)
	if updated.Title != "buy oat milk" || !updated.Completed {
		t.Fatalf("unexpected updated todo: %+v", updated)
	}

	// Get confirms the persisted change
	rec = doJSON(t, router, http.MethodGet, "/api/todos/1", aliceToken, nil)
	decode(t, rec, &got)
	if got.Title != "buy oat milk" || !got.Completed {
		t.Fatalf("update not persisted: %+v", got)
	}

	// Delete
	rec = doJSON(t, router, http.MethodDelete, "/api/todos/1", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/todos/1", aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestCrossUserAccessForbidden(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")
	register(t, router, "bob", "pw2")
	aliceToken := login(t, router, "alice", "pw1")
	bobToken := login(t, router, "bob", "pw2")

	rec := doJSON(t, router, http.MethodPost, "/api/todos", aliceToken, map[string]interface{}{
		"title": "buy milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d", rec.Code)
	}

	// Bob cannot read, update or delete alice's todo.
	if rec := doJSON(t, router, http.MethodGet, "/api/todos/1", bobToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user get: status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPut, "/api/todos/1", bobToken, map[string]interface{}{
		"title": "stolen", "completed": true,
	}); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user update: status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodDelete, "/api/todos/1", bobToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("cross-user delete: status = %d, want 403", rec.Code)
	}

	// The owner still sees it untouched.
	rec = doJSON(t, router, http.MethodGet, "/api/todos/1", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get: status = %d, want 200", rec.Code)
	}
	var got todoResp
	decode(t, rec, &got)
	if got.Title != "buy milk" || got.Completed {
		t.Fatalf("todo changed by non-owner: %+v", got)
	}

	// Bob's list never contains alice's items.
	rec = doJSON(t, router, http.MethodGet, "/api/todos", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bob list: status = %d", rec.Code)
	}
	var bobTodos []todoResp
	decode(t, rec, &bobTodos)
	if len(bobTodos) != 0 {
		t.Fatalf("bob's list leaked todos: %+v", bobTodos)
	}
}

func TestCreateIgnoresClientOwner(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")
	register(t, router, "bob", "pw2")
	aliceToken := login(t, router, "alice", "pw1")
	bobToken := login(t, router, "bob", "pw2")

	// A client-supplied owner field in the payload is ignored; the todo
	// belongs to the authenticated caller.
	rec := doJSON(t, router, http.MethodPost, "/api/todos", aliceToken, map[string]interface{}{
		"title": "buy milk", "userId": "someone-else", "user_id": "someone-else",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/todos", aliceToken, nil)
	var aliceTodos []todoResp
	decode(t, rec, &aliceTodos)
	if len(aliceTodos) != 1 {
		t.Fatalf("alice's list = %+v, want 1 item", aliceTodos)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/todos/1", bobToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("bob get: status = %d, want 403", rec.Code)
	}
}

func TestMe(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")
	token := login(t, router, "alice", "pw1")

	rec := doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status = %d", rec.Code)
	}
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	decode(t, rec, &me)
	if me.Username != "alice" || me.ID == "" {
		t.Fatalf("unexpected me response: %+v", me)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("pw1")) || bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("me response leaked credentials: %s", rec.Body.String())
	}
}

func TestEventsScopedToCaller(t *testing.T) {
	router := newTestRouter(t)
	register(t, router, "alice", "pw1")
	register(t, router, "bob", "pw2")
	aliceToken := login(t, router, "alice", "pw1")
	bobToken := login(t, router, "bob", "pw2")

	doJSON(t, router, http.MethodPost, "/api/todos", aliceToken, map[string]interface{}{"title": "buy milk"})

	rec := doJSON(t, router, http.MethodGet, "/api/events", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("events: status = %d", rec.Code)
	}
	var bobEvents []struct {
		Type   string  `json:"type"`
		UserID *string `json:"userId"`
	}
	decode(t, rec, &bobEvents)
	for _, ev := range bobEvents {
		if ev.Type == "todo.created" {
			t.Fatalf("bob's events contain alice's activity: %+v", bobEvents)
		}
	}

	rec = doJSON(t, router, http.MethodGet, "/api/events", aliceToken, nil)
	var aliceEvents []struct {
		Type string `json:"type"`
	}
	decode(t, rec, &aliceEvents)
	found := false
	for _, ev := range aliceEvents {
		if ev.Type == "todo.created" {
			found = true
		}
	}
	if !found {
		t.Fatalf("alice's events missing todo.created: %+v", aliceEvents)
	}
}

func TestHealthProbes(t *testing.T) {
	router := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: status = %d", rec.Code)
	}
}
