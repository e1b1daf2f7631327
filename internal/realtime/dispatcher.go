// Package realtime delivers setlist change events to connected clients. A
// Dispatcher queues events off the request path and hands them to a
// Publisher: straight into the local websocket Hub, or through Redis so every
// API instance can fan them out to its own clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"setlister/internal/logging"
)

// DefaultQueueSize is used when NewDispatcher gets a non-positive size.
const DefaultQueueSize = 256

const publishTimeout = 5 * time.Second

// Message is the envelope carried between API instances and sent to
// websocket clients.
type Message struct {
	Channel string          `json:"channel"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// Publisher moves a message one hop closer to subscribers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Dispatcher is a best-effort, non-blocking Notifier. Events are queued and
// published by a single worker; when the queue is full they are dropped.
type Dispatcher struct {
	pub   Publisher
	queue chan Message
	log   zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher starts a worker publishing through pub.
func NewDispatcher(pub Publisher, size int, logger zerolog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		pub:   pub,
		queue: make(chan Message, size),
		log:   logger.With().Str("component", "notifier").Logger(),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify queues an event. It never blocks and never fails; problems are
// logged.
func (d *Dispatcher) Notify(ctx context.Context, channel, kind string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.warn(ctx, err, channel, kind, "encode event")
		return
	}
	msg := Message{Channel: channel, Kind: kind, Payload: data, At: time.Now().UTC()}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.warn(ctx, errors.New("dispatcher closed"), channel, kind, "drop event")
		return
	}

	select {
	case d.queue <- msg:
	default:
		d.warn(ctx, errors.New("queue full"), channel, kind, "drop event")
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.publish(msg)
	}
}

func (d *Dispatcher) publish(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("channel", msg.Channel).Msg("publisher panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := d.pub.Publish(ctx, msg); err != nil {
		d.log.Warn().Err(err).Str("channel", msg.Channel).Str("kind", msg.Kind).Msg("publish event")
	}
}

func (d *Dispatcher) warn(ctx context.Context, err error, channel, kind, msg string) {
	d.log.Warn().
		Err(err).
		Str("request_id", logging.RequestID(ctx)).
		Str("channel", channel).
		Str("kind", kind).
		Msg(msg)
}
