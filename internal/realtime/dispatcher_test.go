package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	msgs  []Message
	block chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.msgs...)
}

func TestDispatcherPublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 8, zerolog.Nop())

	d.Notify(context.Background(), "user:1", "setlist.created", map[string]string{"name": "first"})
	d.Notify(context.Background(), "band:2", "setlist.updated", map[string]string{"name": "second"})
	d.Close()

	msgs := pub.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user:1", msgs[0].Channel)
	assert.Equal(t, "setlist.updated", msgs[1].Kind)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &payload))
	assert.Equal(t, "second", payload["name"])
}

func TestDispatcherNeverBlocks(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, 1, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			d.Notify(context.Background(), "user:1", "setlist.reordered", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a stuck publisher")
	}

	close(pub.block)
	d.Close()
	assert.Less(t, len(pub.messages()), 50, "overflowing events are dropped")
	assert.NotEmpty(t, pub.messages())
}

func TestDispatcherSurvivesBadInput(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 4, zerolog.Nop())

	d.Notify(context.Background(), "user:1", "bad", make(chan int))
	d.Close()
	d.Notify(context.Background(), "user:1", "late", "after close")
	d.Close()

	assert.Empty(t, pub.messages())
}
