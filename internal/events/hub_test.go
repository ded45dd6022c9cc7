package events_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/private-doc-vault/docvault/internal/events"
	"github.com/private-doc-vault/docvault/pkg/lifecycle"
)

func newHub(t *testing.T) *events.Hub {
	t.Helper()

	hub := events.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	lc := lifecycle.New()
	if err := hub.Start(lc); err != nil {
		t.Fatalf("start hub: %v", err)
	}
	t.Cleanup(func() {
		lc.Shutdown(time.Second)
	})

	return hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHubBroadcastsToSubscriber(t *testing.T) {
	hub := newHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer server.Close()

	conn := dial(t, server)

	// registration is asynchronous; give the hub loop a beat
	time.Sleep(50 * time.Millisecond)

	docID := uuid.New()
	hub.Publish(events.Update{
		DocumentID:       docID,
		Status:           "processing",
		Progress:         45,
		CurrentOperation: "recognizing text",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var update events.Update
	if err := json.Unmarshal(message, &update); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}

	if update.Type != "processing_update" {
		t.Errorf("type = %q, want processing_update", update.Type)
	}
	if update.DocumentID != docID {
		t.Errorf("document id = %v, want %v", update.DocumentID, docID)
	}
	if update.Status != "processing" || update.Progress != 45 {
		t.Errorf("update = %+v", update)
	}
	if update.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	hub := newHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer server.Close()

	first := dial(t, server)
	second := dial(t, server)

	// registration is asynchronous; give the hub loop a beat
	time.Sleep(50 * time.Millisecond)

	hub.Publish(events.Update{DocumentID: uuid.New(), Status: "completed"})

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("subscriber %d never received the broadcast: %v", i, err)
		}
	}
}

func TestPublishNonBlockingWhenSaturated(t *testing.T) {
	// no Start: nothing drains the broadcast queue
	hub := events.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(events.Update{DocumentID: uuid.New(), Status: "processing"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a saturated queue")
	}
}

func TestServeRejectsNonWebsocketRequest(t *testing.T) {
	hub := newHub(t)
	server := httptest.NewServer(http.HandlerFunc(hub.Serve))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("plain GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-upgrade request", resp.StatusCode)
	}
}
