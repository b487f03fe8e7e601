package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parley/internal/domain"
	"parley/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendQueueSize  = 64
)

// Hub is the WebSocket side of the relay: a registry of connected users and
// the forwarding loop between them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[domain.Username]*client
	upgrader websocket.Upgrader
	metrics  *Metrics
	log      zerolog.Logger
}

// NewHub returns an empty Hub. Origin checks are left to a fronting proxy.
func NewHub(metrics *Metrics, log zerolog.Logger) *Hub {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Hub{
		clients: make(map[domain.Username]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: metrics,
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// Register mounts the hub endpoints on mux.
func (h *Hub) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+relay.ChatPath+"{id}", h.serveWS)
	mux.HandleFunc("GET /presence/{id}", h.servePresence)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// Online reports whether user holds a connection.
func (h *Hub) Online(user domain.Username) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[user]
	return ok
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("id"))
	if user == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("user", user.String()).Msg("upgrade failed")
		return
	}
	c := &client{
		id:   uuid.New(),
		user: user,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
		hub:  h,
	}
	c.log = h.log.With().Str("conn", c.id.String()).Str("user", user.String()).Logger()
	h.register(c)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) servePresence(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("id"))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(relay.Presence{User: user, Online: h.Online(user)})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	old := h.clients[c.user]
	h.clients[c.user] = c
	h.mu.Unlock()
	h.metrics.connected()
	if old != nil {
		old.log.Info().Str("replaced_by", c.id.String()).Msg("connection replaced")
		old.close()
	}
	c.log.Info().Str("remote", c.conn.RemoteAddr().String()).Msg("client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.user] == c {
		delete(h.clients, c.user)
	}
	h.mu.Unlock()
	h.metrics.disconnected()
	c.log.Info().Msg("client disconnected")
}

// forward applies the routing rules to env received from sender.
func (h *Hub) forward(sender domain.Username, env domain.Envelope) {
	deliveries, err := relay.Route(sender, env)
	if err != nil {
		h.metrics.drop(DropInvalid)
		h.log.Debug().Err(err).Str("sender", sender.String()).Msg("dropping envelope")
		return
	}
	for _, d := range deliveries {
		h.mu.RLock()
		dst := h.clients[d.To]
		h.mu.RUnlock()
		if dst == nil {
			h.metrics.drop(DropOffline)
			continue
		}
		data, err := json.Marshal(d.Envelope)
		if err != nil {
			h.metrics.drop(DropMalformed)
			continue
		}
		if !dst.enqueue(data) {
			h.metrics.drop(DropSlow)
			dst.log.Warn().Msg("send queue full, dropping envelope")
			continue
		}
		if !d.Echo {
			h.metrics.forward(env.Type)
		}
	}
}

type client struct {
	id   uuid.UUID
	user domain.Username
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	hub  *Hub
	log  zerolog.Logger
}

func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.conn.Close()
		c.hub.unregister(c)
	})
}

func (c *client) readPump() {
	defer c.close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.hub.metrics.drop(DropMalformed)
			c.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		c.hub.forward(c.user, env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
