package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"ohlc-feature-lab/internal/domain"
)

// FeedClientConfig configures candle feed client behavior.
type FeedClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SubscribeTimeout is how long to wait for subscription confirmation.
	SubscribeTimeout time.Duration
}

// DefaultFeedConfig returns default feed client configuration.
func DefaultFeedConfig() FeedClientConfig {
	return FeedClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// FeedClient streams live candles over WebSocket using gorilla/websocket.
// It reconnects with exponential backoff and resubscribes after reconnect.
type FeedClient struct {
	endpoint string
	config   FeedClientConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps subscription ID to delivery channel
	subs   map[int64]chan domain.Candle
	subsMu sync.RWMutex

	// activeSubs stores instrument lists for resubscription after reconnect
	activeSubs   map[int64][]string
	activeSubsMu sync.RWMutex

	// pendingSubs maps request ID to channel waiting for subscription ID
	pendingSubs   map[uint64]chan int64
	pendingSubsMu sync.Mutex

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewFeedClient creates a new feed client and connects to the endpoint.
func NewFeedClient(ctx context.Context, endpoint string, config *FeedClientConfig) (*FeedClient, error) {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}

	c := &FeedClient{
		endpoint:    endpoint,
		config:      cfg,
		subs:        make(map[int64]chan domain.Candle),
		activeSubs:  make(map[int64][]string),
		pendingSubs: make(map[uint64]chan int64),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *FeedClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe subscribes to candle updates for the given instruments.
func (c *FeedClient) Subscribe(ctx context.Context, instruments []string) (<-chan domain.Candle, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	subID, err := c.subscribeInternal(ctx, instruments)
	if err != nil {
		return nil, err
	}

	// Large buffer absorbs bursts; delivery blocks rather than drops
	ch := make(chan domain.Candle, 10000)
	c.subsMu.Lock()
	c.subs[subID] = ch
	c.subsMu.Unlock()

	// Store instruments for resubscription after reconnect
	c.activeSubsMu.Lock()
	c.activeSubs[subID] = append([]string(nil), instruments...)
	c.activeSubsMu.Unlock()

	return ch, nil
}

// subscribeInternal sends a subscribe request and waits for confirmation
// without storing channel or instrument mappings.
func (c *FeedClient) subscribeInternal(ctx context.Context, instruments []string) (int64, error) {
	reqID := c.requestID.Add(1)

	req := feedRequest{
		Op:          "subscribe",
		ID:          reqID,
		Instruments: instruments,
	}

	confirmCh := make(chan int64, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	removePending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		removePending()
		return 0, fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		removePending()
		return 0, fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case subID := <-confirmCh:
		return subID, nil
	case <-time.After(c.config.SubscribeTimeout):
		removePending()
		return 0, fmt.Errorf("subscription timeout after %s", c.config.SubscribeTimeout)
	case <-c.done:
		return 0, fmt.Errorf("client closed")
	case <-ctx.Done():
		removePending()
		return 0, ctx.Err()
	}
}

// Close closes the WebSocket connection and all subscription channels.
func (c *FeedClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	c.pendingSubsMu.Lock()
	for id, ch := range c.pendingSubs {
		close(ch)
		delete(c.pendingSubs, id)
	}
	c.pendingSubsMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages from WebSocket and dispatches to subscribers.
func (c *FeedClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error, reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *FeedClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	c.resubscribeAll()
}

// resubscribeAll resubscribes all active subscriptions after reconnect.
func (c *FeedClient) resubscribeAll() {
	c.activeSubsMu.RLock()
	active := make(map[int64][]string)
	for id, instruments := range c.activeSubs {
		active[id] = instruments
	}
	c.activeSubsMu.RUnlock()

	c.subsMu.RLock()
	channels := make(map[int64]chan domain.Candle)
	for id, ch := range c.subs {
		channels[id] = ch
	}
	c.subsMu.RUnlock()

	for oldSubID, instruments := range active {
		ch := channels[oldSubID]
		if ch == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		newSubID, err := c.subscribeInternal(ctx, instruments)
		cancel()

		if err != nil {
			// Failed to resubscribe, keep old mapping
			continue
		}

		c.subsMu.Lock()
		delete(c.subs, oldSubID)
		c.subs[newSubID] = ch
		c.subsMu.Unlock()

		c.activeSubsMu.Lock()
		delete(c.activeSubs, oldSubID)
		c.activeSubs[newSubID] = instruments
		c.activeSubsMu.Unlock()
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *FeedClient) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch msg.Op {
	case "subscribed":
		c.handleSubscribeResponse(&msg)
	case "candle":
		c.handleCandle(&msg)
	case "error":
		// Pending subscription will time out
		fmt.Printf("[feed] Error response: code=%d msg=%s\n", msg.Code, msg.Message)
	}
}

// handleSubscribeResponse handles subscription confirmation.
func (c *FeedClient) handleSubscribeResponse(msg *feedMessage) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[msg.ID]
	if ok {
		delete(c.pendingSubs, msg.ID)
	}
	c.pendingSubsMu.Unlock()

	if ok {
		select {
		case ch <- msg.Subscription:
		default:
		}
	}
}

// handleCandle dispatches a candle notification to its subscriber.
func (c *FeedClient) handleCandle(msg *feedMessage) {
	if msg.Data == nil {
		return
	}

	candle := domain.Candle{
		InstrumentID: msg.Data.InstrumentID,
		TimestampMs:  msg.Data.TimestampMs,
		Open:         msg.Data.Open,
		High:         msg.Data.High,
		Low:          msg.Data.Low,
		Close:        msg.Data.Close,
		Volume:       msg.Data.Volume,
	}

	c.subsMu.RLock()
	ch, ok := c.subs[msg.Subscription]
	c.subsMu.RUnlock()

	if ok {
		// Block until we can send, never drop candles
		select {
		case ch <- candle:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *FeedClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
					_ = err
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Feed wire types

type feedRequest struct {
	Op          string   `json:"op"`
	ID          uint64   `json:"id"`
	Instruments []string `json:"instruments,omitempty"`
}

type feedMessage struct {
	Op           string          `json:"op"`
	ID           uint64          `json:"id,omitempty"`
	Subscription int64           `json:"subscription,omitempty"`
	Data         *candleMessage  `json:"data,omitempty"`
	Code         int             `json:"code,omitempty"`
	Message      string          `json:"message,omitempty"`
}

type candleMessage struct {
	InstrumentID string  `json:"instrument_id"`
	TimestampMs  int64   `json:"timestamp_ms"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       float64 `json:"volume"`
}
