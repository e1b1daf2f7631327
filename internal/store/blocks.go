package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"setlister/internal/models"
)

// ListBlocks returns the blocks of a setlist by ascending position.
func (q *queries) ListBlocks(ctx context.Context, setlistID uuid.UUID) ([]models.Block, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, setlist_id, name, position
		FROM setlist_blocks
		WHERE setlist_id = $1
		ORDER BY position ASC, id ASC`, setlistID)
	if err != nil {
		return nil, dbErr("list blocks", err)
	}
	defer rows.Close()

	blocks := make([]models.Block, 0)
	for rows.Next() {
		var block models.Block
		if err := rows.Scan(&block.ID, &block.SetlistID, &block.Name, &block.Position); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}
	return blocks, nil
}

// GetBlock returns a single block.
func (q *queries) GetBlock(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	var block models.Block
	err := q.q.QueryRowContext(ctx, `
		SELECT id, setlist_id, name, position
		FROM setlist_blocks
		WHERE id = $1`, id).Scan(&block.ID, &block.SetlistID, &block.Name, &block.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, dbErr("get block", err)
	}
	return &block, nil
}

// InsertBlock persists a new block.
func (q *queries) InsertBlock(ctx context.Context, block *models.Block) error {
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO setlist_blocks (id, setlist_id, name, position)
		VALUES ($1, $2, $3, $4)`,
		block.ID, block.SetlistID, block.Name, block.Position,
	); err != nil {
		return dbErr("insert block", err)
	}
	return nil
}

// UpdateBlock writes a block's name and position.
func (q *queries) UpdateBlock(ctx context.Context, block *models.Block) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE setlist_blocks
		SET name = $1, position = $2
		WHERE id = $3`, block.Name, block.Position, block.ID)
	if err != nil {
		return dbErr("update block", err)
	}
	return expectOne(res, ErrBlockNotFound)
}

// DeleteBlock removes one block. Entries must be unassigned first.
func (q *queries) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM setlist_blocks WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete block", err)
	}
	return expectOne(res, ErrBlockNotFound)
}

// DeleteBlocks removes every block of a setlist and reports how many went.
func (q *queries) DeleteBlocks(ctx context.Context, setlistID uuid.UUID) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM setlist_blocks WHERE setlist_id = $1`, setlistID)
	if err != nil {
		return 0, dbErr("delete blocks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
