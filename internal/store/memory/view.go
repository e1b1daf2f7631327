package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

// view implements store.Tx over one state snapshot. Callers handle locking.
// Referential checks mirror the foreign keys of the Postgres schema.
type view struct {
	st *state
}

func (v *view) GetSetlist(_ context.Context, id uuid.UUID) (*models.Setlist, error) {
	s, ok := v.st.setlists[id]
	if !ok {
		return nil, store.ErrSetlistNotFound
	}
	out := cloneSetlist(s)
	return &out, nil
}

func (v *view) ListSetlistsForUser(_ context.Context, userID uuid.UUID) ([]*models.Setlist, error) {
	out := make([]*models.Setlist, 0)
	for _, s := range v.st.setlists {
		visible := s.CreatedBy == userID
		if !visible && s.BandID != nil {
			_, visible = v.st.members[memberKey{band: *s.BandID, user: userID}]
		}
		if visible {
			c := cloneSetlist(s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (v *view) InsertSetlist(_ context.Context, setlist *models.Setlist) error {
	if _, ok := v.st.setlists[setlist.ID]; ok {
		return store.ErrConflict
	}
	if setlist.BandID != nil {
		if _, ok := v.st.bands[*setlist.BandID]; !ok {
			return store.Invalid("band %s does not exist", *setlist.BandID)
		}
	}
	v.st.setlists[setlist.ID] = cloneSetlist(*setlist)
	return nil
}

func (v *view) UpdateSetlist(_ context.Context, setlist *models.Setlist) error {
	cur, ok := v.st.setlists[setlist.ID]
	if !ok {
		return store.ErrSetlistNotFound
	}
	cur.Name = setlist.Name
	cur.Description = setlist.Description
	cur.IsPublic = setlist.IsPublic
	cur.UpdatedAt = setlist.UpdatedAt
	v.st.setlists[setlist.ID] = cur
	return nil
}

func (v *view) DeleteSetlist(_ context.Context, id uuid.UUID) error {
	if _, ok := v.st.setlists[id]; !ok {
		return store.ErrSetlistNotFound
	}
	for _, b := range v.st.blocks {
		if b.SetlistID == id {
			return store.Invalid("setlist %s still has blocks", id)
		}
	}
	for _, e := range v.st.entries {
		if e.SetlistID == id {
			return store.Invalid("setlist %s still has entries", id)
		}
	}
	delete(v.st.setlists, id)
	return nil
}

func (v *view) Membership(_ context.Context, bandID, userID uuid.UUID) (models.Membership, error) {
	return models.Membership{
		BandID: bandID,
		UserID: userID,
		Role:   v.st.members[memberKey{band: bandID, user: userID}],
	}, nil
}

func (v *view) ListBandIDsForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for k := range v.st.members {
		if k.user == userID {
			ids = append(ids, k.band)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (v *view) GetSong(_ context.Context, id uuid.UUID) (*models.Song, error) {
	song, ok := v.st.songs[id]
	if !ok {
		return nil, store.ErrSongNotFound
	}
	return &song, nil
}

func (v *view) GetSongs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Song, error) {
	out := make(map[uuid.UUID]models.Song, len(ids))
	for _, id := range ids {
		if song, ok := v.st.songs[id]; ok {
			out[id] = song
		}
	}
	return out, nil
}

func (v *view) ListSongs(_ context.Context, filter models.SongFilter) ([]models.Song, error) {
	query := strings.ToLower(filter.Query)
	artist := strings.ToLower(filter.Artist)

	out := make([]models.Song, 0)
	for _, song := range v.st.songs {
		if query != "" &&
			!strings.Contains(strings.ToLower(song.Title), query) &&
			!strings.Contains(strings.ToLower(song.Artist), query) {
			continue
		}
		if artist != "" && !strings.Contains(strings.ToLower(song.Artist), artist) {
			continue
		}
		out = append(out, song)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Artist != out[j].Artist {
			return out[i].Artist < out[j].Artist
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) InsertSong(_ context.Context, song *models.Song) error {
	if _, ok := v.st.songs[song.ID]; ok {
		return store.ErrConflict
	}
	v.st.songs[song.ID] = *song
	return nil
}

func (v *view) UpdateSong(_ context.Context, song *models.Song) error {
	cur, ok := v.st.songs[song.ID]
	if !ok {
		return store.ErrSongNotFound
	}
	song.CreatedBy = cur.CreatedBy
	song.CreatedAt = cur.CreatedAt
	v.st.songs[song.ID] = *song
	return nil
}

func (v *view) DeleteSong(ctx context.Context, id uuid.UUID) error {
	if _, ok := v.st.songs[id]; !ok {
		return store.ErrSongNotFound
	}
	if used, _ := v.SongInUse(ctx, id); used {
		return fmt.Errorf("song %s: %w", id, store.ErrSongInUse)
	}
	delete(v.st.songs, id)
	return nil
}

func (v *view) SongInUse(_ context.Context, id uuid.UUID) (bool, error) {
	for _, e := range v.st.entries {
		if e.SongID == id {
			return true, nil
		}
	}
	return false, nil
}

func (v *view) ListBlocks(_ context.Context, setlistID uuid.UUID) ([]models.Block, error) {
	out := make([]models.Block, 0)
	for _, b := range v.st.blocks {
		if b.SetlistID == setlistID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (v *view) GetBlock(_ context.Context, id uuid.UUID) (*models.Block, error) {
	b, ok := v.st.blocks[id]
	if !ok {
		return nil, store.ErrBlockNotFound
	}
	return &b, nil
}

func (v *view) InsertBlock(_ context.Context, block *models.Block) error {
	if _, ok := v.st.blocks[block.ID]; ok {
		return store.ErrConflict
	}
	if _, ok := v.st.setlists[block.SetlistID]; !ok {
		return store.Invalid("setlist %s does not exist", block.SetlistID)
	}
	v.st.blocks[block.ID] = *block
	return nil
}

func (v *view) UpdateBlock(_ context.Context, block *models.Block) error {
	cur, ok := v.st.blocks[block.ID]
	if !ok {
		return store.ErrBlockNotFound
	}
	cur.Name = block.Name
	cur.Position = block.Position
	v.st.blocks[block.ID] = cur
	return nil
}

func (v *view) DeleteBlock(_ context.Context, id uuid.UUID) error {
	if _, ok := v.st.blocks[id]; !ok {
		return store.ErrBlockNotFound
	}
	for _, e := range v.st.entries {
		if e.BlockID != nil && *e.BlockID == id {
			return store.Invalid("block %s still has entries", id)
		}
	}
	delete(v.st.blocks, id)
	return nil
}

func (v *view) DeleteBlocks(_ context.Context, setlistID uuid.UUID) (int64, error) {
	var n int64
	for id, b := range v.st.blocks {
		if b.SetlistID != setlistID {
			continue
		}
		for _, e := range v.st.entries {
			if e.BlockID != nil && *e.BlockID == id {
				return 0, store.Invalid("block %s still has entries", id)
			}
		}
		delete(v.st.blocks, id)
		n++
	}
	return n, nil
}

func (v *view) ListEntries(_ context.Context, setlistID uuid.UUID) ([]models.Entry, error) {
	out := make([]models.Entry, 0)
	for _, e := range v.st.entries {
		if e.SetlistID == setlistID {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (v *view) GetEntry(_ context.Context, id uuid.UUID) (*models.Entry, error) {
	e, ok := v.st.entries[id]
	if !ok {
		return nil, store.ErrEntryNotFound
	}
	out := cloneEntry(e)
	return &out, nil
}

func (v *view) InsertEntry(_ context.Context, entry *models.Entry) error {
	if _, ok := v.st.entries[entry.ID]; ok {
		return store.ErrConflict
	}
	if _, ok := v.st.setlists[entry.SetlistID]; !ok {
		return store.Invalid("setlist %s does not exist", entry.SetlistID)
	}
	if _, ok := v.st.songs[entry.SongID]; !ok {
		return store.Invalid("song %s does not exist", entry.SongID)
	}
	if entry.BlockID != nil {
		if _, ok := v.st.blocks[*entry.BlockID]; !ok {
			return store.Invalid("block %s does not exist", *entry.BlockID)
		}
	}
	v.st.entries[entry.ID] = cloneEntry(*entry)
	return nil
}

func (v *view) UpdateEntryPlacement(_ context.Context, id uuid.UUID, position int, blockID *uuid.UUID) error {
	cur, ok := v.st.entries[id]
	if !ok {
		return store.ErrEntryNotFound
	}
	if blockID != nil {
		if _, ok := v.st.blocks[*blockID]; !ok {
			return store.Invalid("block %s does not exist", *blockID)
		}
	}
	cur.Position = position
	cur.BlockID = blockID
	v.st.entries[id] = cloneEntry(cur)
	return nil
}

func (v *view) UnassignBlock(_ context.Context, blockID uuid.UUID) error {
	for id, e := range v.st.entries {
		if e.BlockID != nil && *e.BlockID == blockID {
			e.BlockID = nil
			v.st.entries[id] = e
		}
	}
	return nil
}

func (v *view) DeleteEntry(_ context.Context, id uuid.UUID) error {
	if _, ok := v.st.entries[id]; !ok {
		return store.ErrEntryNotFound
	}
	delete(v.st.entries, id)
	return nil
}

func (v *view) DeleteEntries(_ context.Context, setlistID uuid.UUID) (int64, error) {
	var n int64
	for id, e := range v.st.entries {
		if e.SetlistID == setlistID {
			delete(v.st.entries, id)
			n++
		}
	}
	return n, nil
}
