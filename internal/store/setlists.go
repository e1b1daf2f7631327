package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"setlister/internal/models"
)

const setlistColumns = `id, name, description, band_id, created_by, is_public, created_at, updated_at`

func scanSetlist(row rowScanner) (*models.Setlist, error) {
	var (
		setlist     models.Setlist
		description sql.NullString
		bandID      uuid.NullUUID
	)
	if err := row.Scan(&setlist.ID, &setlist.Name, &description, &bandID, &setlist.CreatedBy,
		&setlist.IsPublic, &setlist.CreatedAt, &setlist.UpdatedAt); err != nil {
		return nil, err
	}
	setlist.Description = description.String
	setlist.BandID = uuidPtr(bandID)
	return &setlist, nil
}

// GetSetlist returns the setlist row without its blocks or entries.
func (q *queries) GetSetlist(ctx context.Context, id uuid.UUID) (*models.Setlist, error) {
	query := `SELECT ` + setlistColumns + `
		FROM setlists
		WHERE id = $1`
	if q.inTx {
		query += ` FOR UPDATE`
	}

	setlist, err := scanSetlist(q.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetlistNotFound
	}
	if err != nil {
		return nil, dbErr("get setlist", err)
	}
	return setlist, nil
}

// ListSetlistsForUser returns setlists the user created or that belong to one
// of the user's bands, newest first.
func (q *queries) ListSetlistsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Setlist, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+setlistColumns+`
		FROM setlists
		WHERE created_by = $1
		   OR band_id IN (SELECT band_id FROM band_members WHERE user_id = $1)
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, dbErr("list setlists", err)
	}
	defer rows.Close()

	setlists := make([]*models.Setlist, 0)
	for rows.Next() {
		setlist, err := scanSetlist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setlist: %w", err)
		}
		setlists = append(setlists, setlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setlists: %w", err)
	}
	return setlists, nil
}

// InsertSetlist persists a new setlist. ID and timestamps must be set.
func (q *queries) InsertSetlist(ctx context.Context, setlist *models.Setlist) error {
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO setlists (id, name, description, band_id, created_by, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		setlist.ID, setlist.Name, nullIfEmpty(setlist.Description), nullUUID(setlist.BandID),
		setlist.CreatedBy, setlist.IsPublic, setlist.CreatedAt, setlist.UpdatedAt,
	); err != nil {
		return dbErr("insert setlist", err)
	}
	return nil
}

// UpdateSetlist writes the mutable setlist fields.
func (q *queries) UpdateSetlist(ctx context.Context, setlist *models.Setlist) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE setlists
		SET name = $1, description = $2, is_public = $3, updated_at = $4
		WHERE id = $5`,
		setlist.Name, nullIfEmpty(setlist.Description), setlist.IsPublic, setlist.UpdatedAt, setlist.ID)
	if err != nil {
		return dbErr("update setlist", err)
	}
	return expectOne(res, ErrSetlistNotFound)
}

// DeleteSetlist removes the setlist row. Blocks and entries must already be
// gone; the schema does not cascade.
func (q *queries) DeleteSetlist(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM setlists WHERE id = $1`, id)
	if err != nil {
		return dbErr("delete setlist", err)
	}
	return expectOne(res, ErrSetlistNotFound)
}

func expectOne(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
