package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/msandoval/flasharb/pkg/types"
)

func TestHub_BroadcastOpportunities(t *testing.T) {
	t.Parallel()

	hub := NewHub(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	// Wait for registration before broadcasting.
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for client registration")
		case <-time.After(time.Millisecond):
		}
	}

	hub.BroadcastOpportunities([]types.Opportunity{
		{
			TokenIn:           common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"),
			VenueA:            "uniswap",
			VenueB:            "quickswap",
			PriceDeltaPercent: 3.2,
		},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}

	var msg struct {
		Type          string              `json:"type"`
		Count         int                 `json:"count"`
		Opportunities []types.Opportunity `json:"opportunities"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if msg.Type != "opportunities" {
		t.Errorf("expected message type opportunities, got %q", msg.Type)
	}
	if msg.Count != 1 || len(msg.Opportunities) != 1 {
		t.Fatalf("expected 1 opportunity, got count=%d len=%d", msg.Count, len(msg.Opportunities))
	}
	if msg.Opportunities[0].PriceDeltaPercent != 3.2 {
		t.Error("opportunity payload not round-tripped")
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	t.Parallel()

	hub := NewHub(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for client registration")
		case <-time.After(time.Millisecond):
		}
	}

	conn.Close()

	deadline = time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for client unregistration")
		case <-time.After(time.Millisecond):
		}
	}
}
