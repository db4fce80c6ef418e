package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/polysentinel/engine/internal/store"
)

// Reconnection and liveness constants
const (
	initialBackoff   = 1 * time.Second
	maxBackoff       = 60 * time.Second
	backoffFactor    = 2.0
	jitterPercent    = 0.2
	heartbeatTimeout = 60 * time.Second
	pongTimeout      = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// WebSocket connection states reported via OnStatus.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusReconnecting = "reconnecting"
)

// Listener maintains the trade stream from Polymarket, reconnecting with
// exponential backoff and jitter when the connection drops.
type Listener struct {
	url       string
	tradeChan chan<- store.WalletTrade

	// OnStatus, when set, receives connection state transitions.
	OnStatus func(status string)

	conn      *websocket.Conn
	connMu    sync.Mutex
	backoff   time.Duration
	lastMsg   time.Time
	lastMsgMu sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
	assetIDs  []string
	assetMu   sync.RWMutex
}

// NewListener creates a listener that emits parsed trades on tradeChan.
func NewListener(url string, tradeChan chan<- store.WalletTrade) *Listener {
	return &Listener{
		url:       url,
		tradeChan: tradeChan,
		backoff:   initialBackoff,
		stopChan:  make(chan struct{}),
	}
}

// SetAssetIDs replaces the token IDs to subscribe to on the next connect.
func (l *Listener) SetAssetIDs(ids []string) {
	l.assetMu.Lock()
	defer l.assetMu.Unlock()
	l.assetIDs = ids
}

// Start begins the listener with automatic reconnection.
func (l *Listener) Start(ctx context.Context) {
	l.wg.Add(2)
	go l.runLoop(ctx)
	go l.heartbeatMonitor(ctx)
}

// Stop gracefully shuts down the listener.
func (l *Listener) Stop() {
	close(l.stopChan)
	l.closeConnection()
	l.wg.Wait()
}

func (l *Listener) setStatus(status string) {
	if l.OnStatus != nil {
		l.OnStatus(status)
	}
}

// runLoop handles connection, reading, and reconnection.
func (l *Listener) runLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ws_loop_stopping", "reason", "context cancelled")
			return
		case <-l.stopChan:
			slog.Info("ws_loop_stopping", "reason", "stop signal")
			return
		default:
		}

		if err := l.connect(ctx); err != nil {
			slog.Error("ws_connect_failed", "error", err, "backoff", l.backoff)
			l.setStatus(StatusReconnecting)
			l.waitBackoff(ctx)
			continue
		}

		if err := l.readLoop(ctx); err != nil {
			slog.Warn("ws_read_error", "error", err)
		}

		l.closeConnection()

		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		default:
			l.setStatus(StatusReconnecting)
			l.waitBackoff(ctx)
		}
	}
}

// connect establishes the connection and subscribes to the market channel.
func (l *Listener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	headers := http.Header{}
	headers.Set("Origin", "https://polymarket.com")

	url := l.url
	if !strings.HasSuffix(url, "/market") && !strings.HasSuffix(url, "/user") {
		url = strings.TrimSuffix(url, "/") + "/market"
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	// Reset backoff on successful connection
	l.backoff = initialBackoff

	slog.Info("ws_connected", "endpoint", url)
	l.setStatus(StatusConnected)

	if err := l.subscribe(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	l.touch()
	return nil
}

// subscribe sends the market channel subscription.
func (l *Listener) subscribe() error {
	l.assetMu.RLock()
	assetIDs := l.assetIDs
	l.assetMu.RUnlock()

	msg := map[string]interface{}{
		"type":       "market",
		"assets_ids": assetIDs,
	}

	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn == nil {
		return fmt.Errorf("connection is nil")
	}

	l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := l.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send subscribe message: %w", err)
	}

	slog.Info("ws_subscribed", "channel", "market", "asset_count", len(assetIDs))
	return nil
}

// readLoop reads messages until the connection fails.
func (l *Listener) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopChan:
			return nil
		default:
		}

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn == nil {
			return fmt.Errorf("connection is nil")
		}

		conn.SetReadDeadline(time.Now().Add(heartbeatTimeout + pongTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		l.touch()
		l.handleMessage(message)
	}
}

// handleMessage parses a message and dispatches any trades it carries.
func (l *Listener) handleMessage(data []byte) {
	trades, msgType, err := ParseTrades(data)
	if err != nil {
		slog.Debug("ws_parse_error", "error", err)
		return
	}

	if len(trades) == 0 {
		if msgType != "" {
			slog.Debug("ws_message", "type", msgType)
		}
		return
	}

	for _, trade := range trades {
		select {
		case l.tradeChan <- trade:
			slog.Debug("trade_received",
				"market", truncate(trade.ConditionID, 16),
				"wallet", truncate(trade.WalletAddress, 10),
				"amount_usd", trade.Amount,
				"side", trade.TradeType,
			)
		default:
			slog.Warn("trade_channel_full", "dropped_market", truncate(trade.ConditionID, 16))
		}
	}
}

// heartbeatMonitor pings the connection when the stream goes quiet.
func (l *Listener) heartbeatMonitor(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.checkHeartbeat()
		}
	}
}

func (l *Listener) checkHeartbeat() {
	l.lastMsgMu.RLock()
	lastMsg := l.lastMsg
	l.lastMsgMu.RUnlock()

	if lastMsg.IsZero() {
		return
	}

	elapsed := time.Since(lastMsg)
	if elapsed > heartbeatTimeout {
		slog.Warn("ws_heartbeat_timeout", "elapsed", elapsed)

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn != nil {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("ws_ping_failed", "error", err)
				l.closeConnection()
			}
		}
	}
}

// touch records message receipt for the heartbeat monitor.
func (l *Listener) touch() {
	l.lastMsgMu.Lock()
	l.lastMsg = time.Now()
	l.lastMsgMu.Unlock()
}

// closeConnection safely closes the WebSocket connection.
func (l *Listener) closeConnection() {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		slog.Info("ws_disconnected")
		l.setStatus(StatusDisconnected)
	}
}

// waitBackoff sleeps for the current backoff with jitter, then doubles it.
func (l *Listener) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(l.backoff) * jitterPercent * (rand.Float64()*2 - 1))
	wait := l.backoff + jitter

	slog.Debug("ws_waiting_backoff", "duration", wait)

	select {
	case <-ctx.Done():
	case <-l.stopChan:
	case <-time.After(wait):
	}

	l.backoff = time.Duration(float64(l.backoff) * backoffFactor)
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
