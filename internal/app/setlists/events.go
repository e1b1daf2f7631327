package setlists

import (
	"context"
	"time"

	"github.com/google/uuid"

	"setlister/internal/models"
)

// Event kinds published after a successful mutation.
const (
	EventSetlistCreated  = "setlist.created"
	EventSetlistUpdated  = "setlist.updated"
	EventSetlistDeleted  = "setlist.deleted"
	EventSongAdded       = "setlist.song_added"
	EventSongRemoved     = "setlist.song_removed"
	EventReordered       = "setlist.reordered"
	EventBlockCreated    = "setlist.block_created"
	EventBlockUpdated    = "setlist.block_updated"
	EventBlockDeleted    = "setlist.block_deleted"
	EventBlocksReordered = "setlist.blocks_reordered"
)

// Notifier receives mutation events. Implementations deliver best-effort and
// must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, channel, kind string, payload any)
}

// Event is the payload handed to the Notifier. Setlist carries the state
// after the mutation; it is nil for deletions.
type Event struct {
	Kind      string          `json:"kind"`
	SetlistID uuid.UUID       `json:"setlist_id"`
	Actor     uuid.UUID       `json:"actor"`
	Setlist   *models.Setlist `json:"setlist,omitempty"`
	Block     *models.Block   `json:"block,omitempty"`
	Entry     *models.Entry   `json:"entry,omitempty"`
	At        time.Time       `json:"at"`
}

// BandChannel is the subscriber group of a band.
func BandChannel(id uuid.UUID) string {
	return "band:" + id.String()
}

// UserChannel is the subscriber group of a single user.
func UserChannel(id uuid.UUID) string {
	return "user:" + id.String()
}

// Channels lists where an event about setlist caused by actor goes.
func Channels(actor uuid.UUID, setlist *models.Setlist) []string {
	channels := make([]string, 0, 2)
	if setlist != nil && setlist.BandID != nil {
		channels = append(channels, BandChannel(*setlist.BandID))
	}
	return append(channels, UserChannel(actor))
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, any) {}
