package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestFeedClient_Connect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// Keep connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewFeedClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	if client.closed.Load() {
		t.Error("client should not be closed")
	}
}

func TestFeedClient_Subscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer c.Close()

		// Read subscribe request
		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}

		var req feedRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
			return
		}

		if req.Op != "subscribe" {
			t.Errorf("expected subscribe, got %s", req.Op)
		}
		if len(req.Instruments) != 1 || req.Instruments[0] != "BTC-USDT" {
			t.Errorf("unexpected instruments: %v", req.Instruments)
		}

		// Send subscription confirmation
		resp := feedMessage{Op: "subscribed", ID: req.ID, Subscription: 7}
		if err := c.WriteJSON(resp); err != nil {
			t.Errorf("write response: %v", err)
			return
		}

		// Send a candle notification
		time.Sleep(50 * time.Millisecond)
		notif := feedMessage{
			Op:           "candle",
			Subscription: 7,
			Data: &candleMessage{
				InstrumentID: "BTC-USDT",
				TimestampMs:  1000,
				Open:         100,
				High:         105,
				Low:          99,
				Close:        103,
				Volume:       12.5,
			},
		}
		if err := c.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
			return
		}

		// Keep connection open
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewFeedClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	defer client.Close()

	ch, err := client.Subscribe(context.Background(), []string{"BTC-USDT"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case candle := <-ch:
		if candle.InstrumentID != "BTC-USDT" {
			t.Errorf("unexpected instrument: %s", candle.InstrumentID)
		}
		if candle.TimestampMs != 1000 || candle.Close != 103 {
			t.Errorf("unexpected candle: %+v", candle)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for candle")
	}
}

func TestFeedClient_SubscribeAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	client, err := NewFeedClient(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("NewFeedClient: %v", err)
	}
	client.Close()

	if _, err := client.Subscribe(context.Background(), []string{"BTC-USDT"}); err == nil {
		t.Error("expected error subscribing on closed client")
	}
}
