package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/M-Chimiste/DCSOlympus/pkg/streaming"
)

const (
	outboxSize   = 256
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
)

var (
	ErrClosed         = errors.New("command stream closed")
	ErrNotConnected   = errors.New("command stream not connected")
	ErrQueueFull      = errors.New("command stream send queue full")
	ErrConnectionLost = errors.New("command stream connection lost")
)

// link is one dialed socket. gone is closed when the socket is dropped.
type link struct {
	conn *ws.Conn
	gone chan struct{}
}

// connection multiplexes acknowledged requests over a single socket. Acks are
// matched to waiters by message type in send order.
type connection struct {
	mu      sync.Mutex
	link    *link
	pending map[string][]chan error
	hello   []byte
	closed  bool

	outbox chan []byte
	done   chan struct{}
	target string

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		pending: make(map[string][]chan error),
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

// dial connects once; later drops are handled by reconnect.
func (c *connection) dial(ctx context.Context, rawURL, token string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	c.target = u.String()

	conn, err := c.open(ctx)
	if err != nil {
		return err
	}
	c.attach(conn)
	return nil
}

func (c *connection) open(ctx context.Context) (*ws.Conn, error) {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, c.target, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn the live socket and starts its reader and writer.
func (c *connection) attach(conn *ws.Conn) {
	l := &link{conn: conn, gone: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.link = l
	c.mu.Unlock()

	go c.writeLoop(l)
	go c.readLoop(l)
}

func (c *connection) writeLoop(l *link) {
	for {
		select {
		case <-c.done:
			return
		case <-l.gone:
			return
		case data := <-c.outbox:
			if err := write(l.conn, data); err != nil {
				c.drop(l, fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (c *connection) readLoop(l *link) {
	for {
		_, message, err := l.conn.ReadMessage()
		if err != nil {
			c.drop(l, fmt.Errorf("read: %w", err))
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring non-ack message", "raw", string(message))
			continue
		}
		c.resolve(ack)
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// resolve hands an ack to the oldest waiter for its type.
func (c *connection) resolve(ack streaming.AckMessage) {
	c.mu.Lock()
	queue := c.pending[ack.For]
	if len(queue) == 0 {
		c.mu.Unlock()
		c.logger.Debug("Ack without waiter", "for", ack.For)
		return
	}
	waiter := queue[0]
	c.pending[ack.For] = queue[1:]
	c.mu.Unlock()

	if ack.Error != "" {
		waiter <- fmt.Errorf("server rejected %q: %s", ack.For, ack.Error)
	} else {
		waiter <- nil
	}
}

// failPendingLocked releases every waiter with err.
func (c *connection) failPendingLocked(err error) {
	for kind, queue := range c.pending {
		for _, waiter := range queue {
			waiter <- err
		}
		delete(c.pending, kind)
	}
}

// drop retires l after a socket error. Only the first caller for a link acts.
func (c *connection) drop(l *link, cause error) {
	c.mu.Lock()
	if c.link != l {
		c.mu.Unlock()
		return
	}
	c.link = nil
	close(l.gone)
	c.failPendingLocked(ErrConnectionLost)
	closed := c.closed
	c.mu.Unlock()

	_ = l.conn.Close()
	if closed {
		return
	}
	c.logger.Warn("Command stream dropped", "error", cause)
	go c.reconnect()
}

// reconnect redials with exponential backoff and replays the hello before
// anything else is written.
func (c *connection) reconnect() {
	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.open(context.Background())
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		hello := c.hello
		c.mu.Unlock()
		if hello != nil {
			if err := write(conn, hello); err != nil {
				c.logger.Warn("Hello replay failed", "attempt", attempt, "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.attach(conn)
		c.logger.Info("Command stream reconnected", "attempt", attempt)
		return
	}
	c.logger.Error("Command stream reconnect gave up", "maxAttempts", maxReconnect)
}

// request queues data and waits for the matching ack. A waiter abandoned on
// timeout stays queued so that a late ack does not resolve a newer request.
func (c *connection) request(ctx context.Context, data []byte, ackFor string, timeout time.Duration) error {
	waiter := make(chan error, 1)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ackFor, ErrClosed)
	case c.link == nil:
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ackFor, ErrNotConnected)
	}
	select {
	case c.outbox <- data:
	default:
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", ackFor, ErrQueueFull)
	}
	c.pending[ackFor] = append(c.pending[ackFor], waiter)
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waiter:
		return err
	case <-timer.C:
		return fmt.Errorf("timeout waiting for ack of %q", ackFor)
	case <-ctx.Done():
		return fmt.Errorf("waiting for ack of %q: %w", ackFor, ctx.Err())
	}
}

func (c *connection) setHello(data []byte) {
	c.mu.Lock()
	c.hello = data
	c.mu.Unlock()
}

// close sends a close frame, stops the loops and fails pending requests.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	l := c.link
	c.link = nil
	c.failPendingLocked(ErrClosed)
	c.mu.Unlock()

	if l == nil {
		return nil
	}
	close(l.gone)
	_ = l.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return l.conn.Close()
}
