package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parley/internal/domain"
)

const (
	writeWait        = 10 * time.Second
	inboundQueueSize = 64
)

// ChatPath is the relay endpoint prefix; the user id is appended.
const ChatPath = "/chat/ws/"

// WebSocket is a Transport over a single relay WebSocket connection.
type WebSocket struct {
	conn *websocket.Conn
	self domain.Username
	log  zerolog.Logger

	writeMu sync.Mutex
	inbound chan domain.Envelope
	done    chan struct{}
	once    sync.Once
}

// ChatURL builds the relay endpoint for self from a ws:// or wss:// base.
func ChatURL(base string, self domain.Username) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("relay url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("relay url: unsupported scheme %q", u.Scheme)
	}
	return u.String() + ChatPath + url.PathEscape(self.String()), nil
}

// DialWebSocket connects to the relay at base as self.
func DialWebSocket(ctx context.Context, base string, self domain.Username, log zerolog.Logger) (*WebSocket, error) {
	u, err := ChatURL(base, self)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	ws := &WebSocket{
		conn:    conn,
		self:    self,
		log:     log.With().Str("component", "ws-transport").Str("self", self.String()).Logger(),
		inbound: make(chan domain.Envelope, inboundQueueSize),
		done:    make(chan struct{}),
	}
	go ws.readPump()
	ws.log.Info().Str("url", u).Msg("connected to relay")
	return ws, nil
}

func (w *WebSocket) readPump() {
	defer close(w.inbound)
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.log.Warn().Err(err).Msg("relay connection lost")
				}
			}
			return
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.log.Debug().Err(err).Msg("dropping malformed frame")
			continue
		}
		select {
		case w.inbound <- env:
		case <-w.done:
			return
		}
	}
}

// Send writes env as one JSON text frame.
func (w *WebSocket) Send(ctx context.Context, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	select {
	case <-w.done:
		return ErrTransportClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeWait)
	}
	_ = w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive yields inbound envelopes; the channel closes with the connection.
func (w *WebSocket) Receive() <-chan domain.Envelope { return w.inbound }

// Close sends a close frame and tears the connection down.
func (w *WebSocket) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		w.writeMu.Unlock()
		err = w.conn.Close()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}

var _ domain.Transport = (*WebSocket)(nil)
