package setlists

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

// CreateBlock adds a named block. Block positions stay dense: inserting in
// the middle shifts the later blocks down by one.
func (s *service) CreateBlock(ctx context.Context, actor, id uuid.UUID, in BlockInput) (*models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, store.Invalid("block name is required")
	}
	if in.Position != nil && *in.Position < 0 {
		return nil, store.Invalid("position must not be negative")
	}

	block := &models.Block{ID: uuid.New(), SetlistID: id, Name: name}
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
		blocks = sortBlocks(blocks)

		at := len(blocks)
		if in.Position != nil && *in.Position < at {
			at = *in.Position
		}
		block.Position = at

		ordered := make([]models.Block, 0, len(blocks)+1)
		ordered = append(ordered, blocks[:at]...)
		ordered = append(ordered, *block)
		ordered = append(ordered, blocks[at:]...)
		if err := tx.InsertBlock(ctx, block); err != nil {
			return err
		}
		if err := renumber(ctx, tx, ordered, block.ID); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventBlockCreated, Setlist: setlist, Block: block})
	return block, nil
}

func (s *service) RenameBlock(ctx context.Context, actor, id, blockID uuid.UUID, name string) (*models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.Invalid("block name is required")
	}

	var (
		setlist *models.Setlist
		block   *models.Block
	)
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}
		block, err = tx.GetBlock(ctx, blockID)
		if err != nil {
			return err
		}
		if block.SetlistID != id {
			return store.ErrBlockNotFound
		}
		block.Name = name
		if err := tx.UpdateBlock(ctx, block); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventBlockUpdated, Setlist: setlist, Block: block})
	return block, nil
}

// MoveBlocks reorders blocks. order must name every block of the setlist
// exactly once; block i receives position i.
func (s *service) MoveBlocks(ctx context.Context, actor, id uuid.UUID, order []uuid.UUID) ([]models.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
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
		if len(order) != len(blocks) {
			return store.Invalid("block order must list all %d blocks", len(blocks))
		}

		byID := make(map[uuid.UUID]models.Block, len(blocks))
		for _, b := range blocks {
			byID[b.ID] = b
		}
		ordered := make([]models.Block, 0, len(order))
		for _, bid := range order {
			b, ok := byID[bid]
			if !ok {
				return store.Invalid("block %s is unknown or repeated", bid)
			}
			delete(byID, bid)
			ordered = append(ordered, b)
		}
		if err := renumber(ctx, tx, ordered, uuid.Nil); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventBlocksReordered, Setlist: setlist})
	return setlist.Blocks, nil
}

// DeleteBlock moves the block's entries to the unassigned block, keeping
// their positions, then removes the block and closes the gap.
func (s *service) DeleteBlock(ctx context.Context, actor, id, blockID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		setlist *models.Setlist
		block   *models.Block
	)
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionEdit)
		if err != nil {
			return err
		}
		block, err = tx.GetBlock(ctx, blockID)
		if err != nil {
			return err
		}
		if block.SetlistID != id {
			return store.ErrBlockNotFound
		}
		if err := tx.UnassignBlock(ctx, blockID); err != nil {
			return err
		}
		if err := tx.DeleteBlock(ctx, blockID); err != nil {
			return err
		}
		rest, err := tx.ListBlocks(ctx, id)
		if err != nil {
			return err
		}
		if err := renumber(ctx, tx, sortBlocks(rest), uuid.Nil); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventBlockDeleted, Setlist: setlist, Block: block})
	return nil
}

// renumber writes position i to the i-th block wherever it differs. skip
// names a block whose row already holds its final position.
func renumber(ctx context.Context, tx store.Tx, ordered []models.Block, skip uuid.UUID) error {
	for i := range ordered {
		b := ordered[i]
		if b.ID == skip || b.Position == i {
			continue
		}
		b.Position = i
		if err := tx.UpdateBlock(ctx, &b); err != nil {
			return err
		}
	}
	return nil
}
