// Package live serves the interactive preview: a websocket hub broadcasting
// the animation state and accepting playback and recording controls.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"chartrace/internal/platform/logger"

	"github.com/gorilla/websocket"
)

const (
	clientBuffer = 256
	pingPeriod   = 45 * time.Second
	readTimeout  = 90 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

type client struct {
	conn *websocket.Conn
	out  chan any
	done chan struct{}
}

// send never blocks; a slow client drops messages.
func (c *client) send(v any) {
	select {
	case c.out <- v:
	default:
	}
}

// Hub fans messages out to connected websocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues v for every client without blocking.
func (h *Hub) Broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.send(v)
	}
}

// ServeWS upgrades the request and serves one client until it disconnects.
// greet returns the messages sent on connect; onControl handles control
// messages and its error is reported back to the sender as a status.
func (h *Hub) ServeWS(greet func() []any, onControl func(ControlMsg) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		cl := &client{conn: conn, out: make(chan any, clientBuffer), done: make(chan struct{})}
		if greet != nil {
			for _, v := range greet() {
				cl.send(v)
			}
		}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()
		h.log.Info("preview client connected", slog.String("remote", r.RemoteAddr))

		go h.writeLoop(cl)
		h.readLoop(cl, onControl)

		close(cl.done)
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		h.log.Info("preview client disconnected", slog.String("remote", r.RemoteAddr))
	}
}

func (h *Hub) writeLoop(cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case v := <-cl.out:
			if err := cl.conn.WriteJSON(v); err != nil {
				h.log.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ping.C:
			_ = cl.conn.WriteMessage(websocket.PingMessage, nil)
		case <-cl.done:
			return
		}
	}
}

func (h *Hub) readLoop(cl *client, onControl func(ControlMsg) error) {
	_ = cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		mt, data, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var ctrl ControlMsg
		if err := json.Unmarshal(data, &ctrl); err != nil || ctrl.Type != TypeControl {
			cl.send(StatusMsg{Type: TypeStatus, Level: "error", Text: "unrecognised message"})
			continue
		}
		ctrl.Action = strings.ToLower(strings.TrimSpace(ctrl.Action))
		if onControl == nil {
			continue
		}
		if err := onControl(ctrl); err != nil {
			cl.send(StatusMsg{Type: TypeStatus, Level: "error", Text: err.Error()})
		}
	}
}
