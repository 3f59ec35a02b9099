package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"satfarm/internal/app/ports"
	"satfarm/internal/domain/farm"
)

const (
	ProtocolVersion = "1"

	FrameHello  = "hello"
	FrameEvents = "events"

	clientBuffer = 256
	writeWait    = 5 * time.Second
)

// pongWait bounds client silence. Pings go out every pingPeriod so a
// read-only observer keeps answering with pongs.
var (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type Frame struct {
	Type      string             `json:"type"`
	Protocol  string             `json:"protocol,omitempty"`
	SessionID string             `json:"session_id,omitempty"`
	Events    []farm.DomainEvent `json:"events,omitempty"`
	Score     *Score             `json:"score,omitempty"`
}

type Score struct {
	Balance int `json:"balance"`
	XP      int `json:"xp"`
	Day     int `json:"day"`
	Planted int `json:"planted"`
}

type client struct {
	id      uint64
	session string
	out     chan []byte
}

// Hub fans session event batches out to websocket observers. A slow
// observer loses frames rather than stalling the session.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[uint64]*client
	closed  bool

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log.With().Str("component", "ObserverHub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[uint64]*client),
	}
}

func (h *Hub) Publish(b ports.EventBatch) {
	if len(b.Events) == 0 {
		return
	}
	frame := Frame{
		Type:      FrameEvents,
		SessionID: b.SessionID,
		Events:    b.Events,
		Score: &Score{
			Balance: b.Score.Balance,
			XP:      b.Score.XP,
			Day:     b.Score.Day,
			Planted: b.Score.Planted,
		},
	}
	msg, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("encode frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.session != "" && c.session != b.SessionID {
			continue
		}
		select {
		case c.out <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every observer. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.out)
		delete(h.clients, id)
	}
}

func (h *Hub) register(session string) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{
		id:      h.nextID.Add(1),
		session: session,
		out:     make(chan []byte, clientBuffer),
	}
	h.clients[c.id] = c
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		close(c.out)
		delete(h.clients, c.id)
	}
}

// Handler upgrades GET requests. The optional session query parameter
// limits the feed to one session.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		wait, period := pongWait, pingPeriod

		c, ok := h.register(r.URL.Query().Get("session"))
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.unregister(c)
		h.log.Debug().Uint64("client", c.id).Str("session", c.session).Msg("observer joined")

		hello, _ := json.Marshal(Frame{Type: FrameHello, Protocol: ProtocolVersion, SessionID: c.session})
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		ping := time.NewTicker(period)
		defer ping.Stop()
		go func() {
			for {
				select {
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						writeErr <- err
						return
					}
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b, ok := <-c.out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"), time.Now().Add(time.Second))
						writeErr <- nil
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Observers are read-only; reading only detects disconnects.
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})
		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		select {
		case <-readDone:
		case <-writeErr:
		}
		cancel()
		h.log.Debug().Uint64("client", c.id).Msg("observer left")
	}
}
