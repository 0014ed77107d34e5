package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrSendQueueFull    = errors.New("send queue is full")
)

// Options tunes connections created through the hub. Zero fields take defaults.
type Options struct {
	SendBuffer int
	ReadLimit  int64
	WriteWait  time.Duration
	PongWait   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	return o
}

// Hub fans session updates out to the sockets watching each session.
// A watcher whose queue is full is dropped rather than stalling the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Connection]struct{}
	opts     Options
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return NewHubWithOptions(logger, Options{})
}

func NewHubWithOptions(logger zerolog.Logger, opts Options) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Connection]struct{}),
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Attach wraps conn and registers it as a watcher of sessionID.
func (h *Hub) Attach(sessionID string, conn *websocket.Conn) *Connection {
	c := newConnection(conn, h.opts, h.logger.With().Str("session_id", sessionID).Logger())
	h.Join(sessionID, c)
	return c
}

// Join registers c as a watcher of sessionID.
func (h *Hub) Join(sessionID string, c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	watchers, ok := h.sessions[sessionID]
	if !ok {
		watchers = make(map[*Connection]struct{})
		h.sessions[sessionID] = watchers
	}
	watchers[c] = struct{}{}
	h.logger.Debug().Str("session_id", sessionID).Int("watchers", len(watchers)).Msg("watcher joined")
}

// Leave unregisters and closes c. Leaving twice is harmless.
func (h *Hub) Leave(sessionID string, c *Connection) {
	h.mu.Lock()
	watchers := h.sessions[sessionID]
	_, ok := watchers[c]
	if ok {
		delete(watchers, c)
		if len(watchers) == 0 {
			delete(h.sessions, sessionID)
		}
	}
	h.mu.Unlock()

	if ok {
		c.Close()
		h.logger.Debug().Str("session_id", sessionID).Msg("watcher left")
	}
}

// CloseSession disconnects every watcher of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	watchers := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	for c := range watchers {
		c.Close()
	}
}

// Broadcast queues msg on every watcher of sessionID and returns how many
// accepted it. Watchers that cannot keep up are dropped.
func (h *Hub) Broadcast(sessionID string, msg Message) int {
	h.mu.RLock()
	watchers := make([]*Connection, 0, len(h.sessions[sessionID]))
	for c := range h.sessions[sessionID] {
		watchers = append(watchers, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range watchers {
		switch err := c.Send(msg); {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSendQueueFull):
			h.logger.Warn().Str("session_id", sessionID).Str("type", msg.Type).Msg("dropping slow watcher")
			h.Leave(sessionID, c)
		default:
			h.Leave(sessionID, c)
		}
	}
	return delivered
}

// Watchers counts connections on sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Connection is one socket with a bounded outbound queue drained by WritePump.
type Connection struct {
	conn   *websocket.Conn
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	sendCh chan Message
	closed bool
}

func newConnection(conn *websocket.Conn, opts Options, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		opts:   opts,
		logger: logger,
		sendCh: make(chan Message, opts.SendBuffer),
	}
}

// Send queues msg without blocking.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close ends the queue; WritePump sends a close frame and exits.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
}

// WritePump drains the queue and pings at 90% of the pong wait.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Str("type", msg.Type).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump decodes client frames into handle until the socket closes.
func (c *Connection) ReadPump(handle func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadLimit(c.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("read failed")
			}
			return
		}
		if err := handle(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler error")
		}
	}
}
