package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"setlister/internal/models"
)

const entryColumns = `id, setlist_id, song_id, position, block_id, notes, created_at`

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry   models.Entry
		blockID uuid.NullUUID
		notes   sql.NullString
	)
	if err := row.Scan(&entry.ID, &entry.SetlistID, &entry.SongID, &entry.Position,
		&blockID, &notes, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.BlockID = uuidPtr(blockID)
	entry.Notes = notes.String
	return &entry, nil
}

// ListEntries returns every entry of a setlist. Rows come back in storage
// order; arranging them into performance order is the caller's job.
func (q *queries) ListEntries(ctx context.Context, setlistID uuid.UUID) ([]models.Entry, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM setlist_songs
		WHERE setlist_id = $1`, setlistID)
	if err != nil {
		return nil, dbErr("list entries", err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// GetEntry returns a single entry.
func (q *queries) GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	entry, err := scanEntry(q.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM setlist_songs
		WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, dbErr("get entry", err)
	}
	return entry, nil
}

// InsertEntry persists a new entry.
func (q *queries) InsertEntry(ctx context.Context, entry *models.Entry) error {
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO setlist_songs (id, setlist_id, song_id, position, block_id, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.SetlistID, entry.SongID, entry.Position, nullUUID(entry.BlockID),
		nullIfEmpty(entry.Notes), entry.CreatedAt,
	); err != nil {
		return dbErr("insert entry", err)
	}
	return nil
}

// UpdateEntryPlacement moves an entry to a position and block.
func (q *queries) UpdateEntryPlacement(ctx context.Context, id uuid.UUID, position int, blockID *uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE setlist_songs
		SET position = $1, block_id = $2
		WHERE id = $3`, position, nullUUID(blockID), id)
	if err != nil {
		return dbErr("update entry placement", err)
	}
	return expectOne(res, ErrEntryNotFound)
}

// UnassignBlock moves every entry of a block into the unassigned block,
// keeping their positions.
func (q *queries) UnassignBlock(ctx context.Context, blockID uuid.UUID) error {
	if _, err := q.q.ExecContext(ctx, `
		UPDATE setlist_songs
		SET block_id = NULL
		WHERE block_id = $1`, blockID); err != nil {
		return dbErr("unassign block", err)
	}
	return nil
}

// DeleteEntry removes one entry.
func (q *queries) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM setlist_songs WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete entry", err)
	}
	return expectOne(res, ErrEntryNotFound)
}

// DeleteEntries removes every entry of a setlist and reports how many went.
func (q *queries) DeleteEntries(ctx context.Context, setlistID uuid.UUID) (int64, error) {
	res, err := q.q.ExecContext(ctx, `DELETE FROM setlist_songs WHERE setlist_id = $1`, setlistID)
	if err != nil {
		return 0, dbErr("delete entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
