package feed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"decay-ledger/internal/domain"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(nil, nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// waitSubscribers waits for the hub to register n clients; the upgrade
// completes asynchronously relative to the dialer returning.
func waitSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversEvents(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	waitSubscribers(t, hub, 1)

	hub.Publish(&domain.LedgerEvent{
		EventID:    "ev1",
		Tenant:     "dao",
		SymbolCode: "VOICE",
		Type:       domain.EventTransfer,
		From:       "issuer",
		To:         "alice",
		Amount:     250,
		Precision:  2,
		Memo:       "hello",
		OccurredAt: 1_700_000_000,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got domain.LedgerEvent
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.EventID != "ev1" || got.Type != domain.EventTransfer || got.Amount != 250 {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.From != "issuer" || got.To != "alice" || got.Memo != "hello" {
		t.Errorf("unexpected event fields: %+v", got)
	}
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	hub, srv := newTestHub(t)
	first := dial(t, srv)
	second := dial(t, srv)
	waitSubscribers(t, hub, 2)

	hub.Publish(&domain.LedgerEvent{EventID: "ev1", Type: domain.EventIssue})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var got domain.LedgerEvent
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.EventID != "ev1" {
			t.Errorf("EventID = %q, want ev1", got.EventID)
		}
	}
}

func TestHubRemovesDisconnectedClient(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	waitSubscribers(t, hub, 1)

	conn.Close()
	waitSubscribers(t, hub, 0)

	// Publishing with no subscribers must not panic or block.
	hub.Publish(&domain.LedgerEvent{EventID: "ev1", Type: domain.EventBurn})
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	waitSubscribers(t, hub, 1)

	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	if n := hub.Subscribers(); n != 0 {
		t.Errorf("subscribers after close = %d, want 0", n)
	}
}
