package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	clientBuffer   = 64
)

// ErrHubClosed is returned by Deliver once the hub has stopped.
var ErrHubClosed = errors.New("realtime hub closed")

// Hub owns the websocket clients of this instance and routes each message to
// the clients subscribed to its channel. Slow clients are disconnected.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHub creates a Hub accepting websocket upgrades from allowedOrigins. An
// empty list or "*" accepts any origin.
func NewHub(logger zerolog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger.With().Str("component", "hub").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Run serves registrations and deliveries until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn().Err(err).Str("channel", msg.Channel).Msg("encode message")
				continue
			}
			for client := range h.clients {
				if !client.subscribed(msg.Channel) {
					continue
				}
				select {
				case client.send <- data:
				default:
					h.log.Warn().Str("channel", msg.Channel).Msg("dropping slow client")
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Deliver routes msg to the local clients.
func (h *Hub) Deliver(ctx context.Context, msg Message) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and subscribes the connection to channels.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channels []string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, clientBuffer),
		channels: make(map[string]struct{}, len(channels)),
	}
	for _, ch := range channels {
		client.channels[ch] = struct{}{}
	}

	welcome, _ := json.Marshal(map[string]any{
		"type":     "welcome",
		"channels": channels,
		"now":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	client.send <- welcome

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// HubNotifier publishes straight into a local hub. It serves single-instance
// deployments without Redis.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier returns a Publisher delivering into hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Publish implements Publisher.
func (n *HubNotifier) Publish(ctx context.Context, msg Message) error {
	return n.hub.Deliver(ctx, msg)
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimSpace(o))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
