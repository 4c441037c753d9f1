package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"trade-dashboard/internal/interfaces"
	"trade-dashboard/internal/logger"
	"trade-dashboard/internal/store"
)

// Client maintains the TCP connection to the trading terminal: logon,
// heartbeats, capped-backoff reconnect, and a post-logon snapshot request
// before event dispatch resumes. Handler callbacks run sequentially on the
// read loop.
type Client struct {
	cfg     *store.Config
	handler interfaces.FeedHandler

	mu     sync.Mutex
	conn   net.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

var _ interfaces.Feed = (*Client)(nil)

func NewClient(cfg *store.Config, handler interfaces.FeedHandler) *Client {
	return &Client{cfg: cfg, handler: handler}
}

func (c *Client) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx)
	return nil
}

func (c *Client) Stop(ctx context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		case <-ctx.Done():
			logger.Warn(ctx, "Feed shutdown timed out")
		}
	}
}

// run is the connection supervisor: dial, serve, back off, repeat.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	backoff := time.Duration(c.cfg.Feed.ReconnectMinSeconds) * time.Second
	maxBackoff := time.Duration(c.cfg.Feed.ReconnectMaxSeconds) * time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.serve(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Warn(ctx, "Feed connection lost, reconnecting",
			"error", fmt.Sprint(err),
			"retry_in", backoff.String(),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// serve runs one connection to completion: logon, snapshot request, then the
// dispatch loop until the connection drops.
func (c *Client) serve(ctx context.Context) error {
	addr := net.JoinHostPort(c.cfg.Feed.Host, fmt.Sprint(c.cfg.Feed.Port))

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing terminal: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	logger.Info(ctx, "Feed connected", "addr", addr)

	if err := c.send(logonRequest{
		Type:            msgLogonRequest,
		ProtocolVersion: c.cfg.Feed.ProtocolVersion,
		ClientName:      "trade-dashboard",
		HeartbeatSec:    c.cfg.Feed.HeartbeatSeconds,
	}); err != nil {
		return err
	}
	if err := c.send(snapshotRequest{Type: msgSnapshotRequest}); err != nil {
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go c.heartbeatLoop(hbCtx)

	return c.readLoop(ctx, bufio.NewReader(conn))
}

func (c *Client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("feed not connected")
	}
	return writeFrame(c.conn, v)
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.Feed.HeartbeatSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.send(heartbeat{Type: msgHeartbeat}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, r *bufio.Reader) error {
	for {
		payload, err := readFrame(r)
		if err != nil {
			return err
		}
		c.dispatch(ctx, payload)
	}
}

// dispatch decodes one frame and invokes the handler. A malformed frame is
// dropped and logged; it never tears down the connection.
func (c *Client) dispatch(ctx context.Context, payload []byte) {
	var h header
	if err := json.Unmarshal(payload, &h); err != nil {
		logger.Warn(ctx, "Dropping unparseable frame", "error", err.Error())
		return
	}

	switch h.Type {
	case msgHeartbeat, msgLogonResponse:
		// Liveness only.

	case msgSnapshotResponse:
		var m snapshotMsg
		if !c.decode(ctx, h.Type, payload, &m) {
			return
		}
		c.handler.OnSnapshot(ctx, m.normalize())

	case msgOrderUpdate:
		var m orderUpdateMsg
		if !c.decode(ctx, h.Type, payload, &m) {
			return
		}
		c.handler.OnOrderUpdate(ctx, m.normalize())

	case msgPositionUpdate:
		var m positionUpdateMsg
		if !c.decode(ctx, h.Type, payload, &m) {
			return
		}
		c.handler.OnPositionUpdate(ctx, m.normalize())

	case msgBalanceUpdate:
		var m balanceUpdateMsg
		if !c.decode(ctx, h.Type, payload, &m) {
			return
		}
		c.handler.OnBalanceUpdate(ctx, m.normalize())

	case msgMarketData:
		var m marketDataMsg
		if !c.decode(ctx, h.Type, payload, &m) {
			return
		}
		if m.Symbol != "" && m.LastTradePrice > 0 {
			c.handler.OnMarketData(ctx, m.Symbol, m.LastTradePrice, m.market())
		}

	default:
		logger.Debug(ctx, "Ignoring frame", "type", h.Type)
	}
}

func (c *Client) decode(ctx context.Context, msgType string, payload []byte, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		logger.Warn(ctx, "Dropping malformed frame",
			"type", msgType,
			"error", err.Error(),
		)
		return false
	}
	return true
}
