package setlists

import (
	"sort"

	"github.com/google/uuid"

	"setlister/internal/models"
)

// orderEntries sorts entries into performance order: unassigned entries
// first, then each block by ascending block position, and inside a group by
// entry position. Creation time and id break ties so the order is total.
// Entries pointing at a block missing from blocks sort last.
func orderEntries(blocks []models.Block, entries []models.Entry) []models.Entry {
	rank := blockRanks(blocks)
	missing := len(blocks) + 1

	rankOf := func(e models.Entry) int {
		if e.BlockID == nil {
			return 0
		}
		if r, ok := rank[*e.BlockID]; ok {
			return r
		}
		return missing
	}

	out := make([]models.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := rankOf(a), rankOf(b); ra != rb {
			return ra < rb
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}

// sortBlocks orders blocks by position, then id.
func sortBlocks(blocks []models.Block) []models.Block {
	out := make([]models.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// blockRanks maps block ids to 1-based ranks; rank 0 is the unassigned block.
func blockRanks(blocks []models.Block) map[uuid.UUID]int {
	sorted := sortBlocks(blocks)
	rank := make(map[uuid.UUID]int, len(sorted))
	for i, b := range sorted {
		rank[b.ID] = i + 1
	}
	return rank
}

// resolve orders entries and joins them with their songs and block names.
func resolve(blocks []models.Block, entries []models.Entry, songs map[uuid.UUID]models.Song) []models.EntryView {
	names := make(map[uuid.UUID]string, len(blocks))
	for _, b := range blocks {
		names[b.ID] = b.Name
	}

	ordered := orderEntries(blocks, entries)
	views := make([]models.EntryView, 0, len(ordered))
	for _, e := range ordered {
		view := models.EntryView{Entry: e, Song: songs[e.SongID]}
		if e.BlockID != nil {
			view.BlockName = names[*e.BlockID]
		}
		views = append(views, view)
	}
	return views
}

// Group splits ordered entry views into sections. The unassigned section
// comes first and is omitted when empty; every block gets a section, even an
// empty one.
func Group(blocks []models.Block, views []models.EntryView) []models.Section {
	sorted := sortBlocks(blocks)
	byBlock := make(map[uuid.UUID][]models.EntryView, len(sorted))
	var unassigned []models.EntryView
	for _, v := range views {
		if v.BlockID == nil {
			unassigned = append(unassigned, v)
			continue
		}
		byBlock[*v.BlockID] = append(byBlock[*v.BlockID], v)
	}

	sections := make([]models.Section, 0, len(sorted)+1)
	if len(unassigned) > 0 {
		sections = append(sections, models.Section{Entries: unassigned})
	}
	for i := range sorted {
		b := sorted[i]
		entries := byBlock[b.ID]
		if entries == nil {
			entries = []models.EntryView{}
		}
		sections = append(sections, models.Section{Block: &b, Entries: entries})
	}
	return sections
}
