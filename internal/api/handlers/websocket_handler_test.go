package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketFeed(t *testing.T) {
	router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	register(t, router, "alice", "pw1")
	register(t, router, "bob", "pw2")
	aliceToken := login(t, router, "alice", "pw1")
	bobToken := login(t, router, "bob", "pw2")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + aliceToken

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Give the hub a moment to process the registration.
	time.Sleep(200 * time.Millisecond)

	// Bob's activity must not reach alice's feed; alice's must.
	doJSON(t, router, http.MethodPost, "/api/todos", bobToken, map[string]interface{}{"title": "bob's"})
	doJSON(t, router, http.MethodPost, "/api/todos", aliceToken, map[string]interface{}{"title": "buy milk"})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read websocket message: %v", err)
	}

	var msg struct {
		Action  string `json:"action"`
		Payload struct {
			Title string `json:"title"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message %q: %v", data, err)
	}
	if msg.Action != "todo.created" {
		t.Fatalf("action = %q, want todo.created", msg.Action)
	}
	if msg.Payload.Title != "buy milk" {
		t.Fatalf("payload title = %q, want alice's todo only", msg.Payload.Title)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	router := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=garbage"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded with an invalid token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("handshake response = %+v, want 401", resp)
	}
}
