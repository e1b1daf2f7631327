// Package export turns a resolved setlist into external artifacts: a printable
// PDF and a Spotify playlist.
package export

import (
	"fmt"
	"time"

	"setlister/internal/models"
)

// View is the ordered, read-only setlist consumed by the exporters.
type View struct {
	Setlist  *models.Setlist
	Sections []models.Section
}

// Entries flattens the sections back into performance order.
func (v View) Entries() []models.EntryView {
	var out []models.EntryView
	for _, s := range v.Sections {
		out = append(out, s.Entries...)
	}
	return out
}

// Duration is the total running time of the setlist.
func (v View) Duration() time.Duration {
	var total time.Duration
	for _, s := range v.Sections {
		total += s.Duration()
	}
	return total
}

func formatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
