package setlists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

func (s *service) ListEntries(ctx context.Context, actor, id uuid.UUID) ([]models.EntryView, error) {
	setlist, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return setlist.Entries, nil
}

func (s *service) Sections(ctx context.Context, actor, id uuid.UUID) (*models.Setlist, []models.Section, error) {
	setlist, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	return setlist, Group(setlist.Blocks, setlist.Entries), nil
}

// AddEntry inserts a song at the caller's position. Siblings are never
// renumbered; two entries may share a position until the next reorder.
func (s *service) AddEntry(ctx context.Context, actor, id uuid.UUID, in AddEntryInput) (*models.EntryView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.SongID == uuid.Nil {
		return nil, store.Invalid("song id is required")
	}
	if in.Position < 0 {
		return nil, store.Invalid("position must not be negative")
	}

	entry := &models.Entry{
		ID:        uuid.New(),
		SetlistID: id,
		SongID:    in.SongID,
		Position:  in.Position,
		BlockID:   in.BlockID,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: s.clock(),
	}

	var (
		setlist *models.Setlist
		view    *models.EntryView
	)
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}
		song, err := tx.GetSong(ctx, in.SongID)
		if err != nil {
			return err
		}
		blockName := ""
		if in.BlockID != nil {
			block, err := blockOf(ctx, tx, id, *in.BlockID)
			if err != nil {
				return err
			}
			blockName = block.Name
		}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		view = &models.EntryView{Entry: *entry, Song: *song, BlockName: blockName}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventSongAdded, Setlist: setlist, Entry: entry})
	return view, nil
}

// RemoveEntry removes the first entry of songID in performance order.
func (s *service) RemoveEntry(ctx context.Context, actor, id, songID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		setlist *models.Setlist
		removed models.Entry
	)
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}
		blocks, err := tx.ListBlocks(ctx, id)
		if err != nil {
			return err
		}
		entries, err := tx.ListEntries(ctx, id)
		if err != nil {
			return err
		}

		found := false
		for _, e := range orderEntries(blocks, entries) {
			if e.SongID == songID {
				removed, found = e, true
				break
			}
		}
		if !found {
			return fmt.Errorf("song %s in setlist %s: %w", songID, id, store.ErrEntryNotFound)
		}
		if err := tx.DeleteEntry(ctx, removed.ID); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventSongRemoved, Setlist: setlist, Entry: &removed})
	return nil
}

func (s *service) RemoveEntryByID(ctx context.Context, actor, id, entryID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		setlist *models.Setlist
		removed *models.Entry
	)
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}
		removed, err = tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if removed.SetlistID != id {
			return store.ErrEntryNotFound
		}
		if err := tx.DeleteEntry(ctx, entryID); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventSongRemoved, Setlist: setlist, Entry: removed})
	return nil
}

type slot struct {
	block uuid.UUID
	pos   int
}

// ReorderEntries applies every placement in one transaction. A placement for
// an entry outside the setlist, a foreign block, or a resulting clash of
// (block, position) among the touched entries aborts the whole batch.
func (s *service) ReorderEntries(ctx context.Context, actor, id uuid.UUID, placements []Placement) ([]models.EntryView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(placements) == 0 {
		return nil, store.Invalid("at least one placement is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(placements))
	for _, p := range placements {
		if p.EntryID == uuid.Nil {
			return nil, store.Invalid("entry id is required")
		}
		if p.Position < 0 {
			return nil, store.Invalid("position must not be negative")
		}
		if _, dup := seen[p.EntryID]; dup {
			return nil, store.Invalid("entry %s appears more than once", p.EntryID)
		}
		seen[p.EntryID] = struct{}{}
	}

	var setlist *models.Setlist
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}

		blocks, err := tx.ListBlocks(ctx, id)
		if err != nil {
			return err
		}
		owned := make(map[uuid.UUID]struct{}, len(blocks))
		for _, b := range blocks {
			owned[b.ID] = struct{}{}
		}

		for _, p := range placements {
			if p.BlockID != nil {
				if _, ok := owned[*p.BlockID]; !ok {
					return store.Invalid("block %s does not belong to setlist %s", *p.BlockID, id)
				}
			}
			entry, err := tx.GetEntry(ctx, p.EntryID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && entry.SetlistID != id) {
				return store.Invalid("entry %s does not belong to setlist %s", p.EntryID, id)
			}
			if err != nil {
				return err
			}
			if err := tx.UpdateEntryPlacement(ctx, p.EntryID, p.Position, p.BlockID); err != nil {
				return err
			}
		}

		entries, err := tx.ListEntries(ctx, id)
		if err != nil {
			return err
		}
		taken := make(map[slot]uuid.UUID, len(entries))
		for _, e := range entries {
			key := slot{pos: e.Position}
			if e.BlockID != nil {
				key.block = *e.BlockID
			}
			other, clash := taken[key]
			taken[key] = e.ID
			if !clash {
				continue
			}
			_, touchedA := seen[e.ID]
			_, touchedB := seen[other]
			if touchedA || touchedB {
				return store.Invalid("entries %s and %s share position %d", other, e.ID, e.Position)
			}
		}

		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventReordered, Setlist: setlist})
	return setlist.Entries, nil
}

// blockOf returns the block when it belongs to setlistID. A missing or
// foreign block is invalid input rather than not-found: the caller named it.
func blockOf(ctx context.Context, tx store.Tx, setlistID, blockID uuid.UUID) (*models.Block, error) {
	block, err := tx.GetBlock(ctx, blockID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.Invalid("block %s does not exist", blockID)
	}
	if err != nil {
		return nil, err
	}
	if block.SetlistID != setlistID {
		return nil, store.Invalid("block %s does not belong to setlist %s", blockID, setlistID)
	}
	return block, nil
}
