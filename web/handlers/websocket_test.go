package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mattiasfr/kintree/web/handlers"
)

func TestWebSocketHubValidatesOrigin(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	defer hub.Stop()

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "http://evil.com")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	w := httptest.NewRecorder()
	hub.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Forbidden")
}

func TestWebSocketHubNotifyInsert(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	mockClient := &handlers.MockClient{SendChan: received}

	hub.Register(mockClient)
	time.Sleep(10 * time.Millisecond)

	hub.NotifyInsert("person", "I1")

	select {
	case msg := <-received:
		assert.Contains(t, string(msg), `"type":"insert"`)
		assert.Contains(t, string(msg), `"kind":"person"`)
		assert.Contains(t, string(msg), `"id":"I1"`)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestWebSocketHubUnregister(t *testing.T) {
	hub := handlers.NewWebSocketHub()
	go hub.Run()
	defer hub.Stop()

	received := make(chan []byte, 1)
	mockClient := &handlers.MockClient{SendChan: received}

	hub.Register(mockClient)
	time.Sleep(10 * time.Millisecond)
	hub.Unregister(mockClient)
	time.Sleep(10 * time.Millisecond)

	// The hub closes the send channel on unregister.
	_, open := <-received
	assert.False(t, open)
}
