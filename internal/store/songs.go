package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"setlister/internal/models"
)

const songColumns = `id, title, artist, musical_key, tempo, duration_seconds, notes, external_ref,
		       created_by, created_at, updated_at`

func scanSong(row rowScanner) (*models.Song, error) {
	var song models.Song
	if err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.Key, &song.Tempo,
		&song.DurationSeconds, &song.Notes, &song.ExternalRef,
		&song.CreatedBy, &song.CreatedAt, &song.UpdatedAt); err != nil {
		return nil, err
	}
	return &song, nil
}

// ListSongs returns songs matching the filter.
func (q *queries) ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error) {
	query := `
		SELECT ` + songColumns + `
		FROM songs
		WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Query != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR artist ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+filter.Query+"%")
		argIdx++
	}

	if filter.Artist != "" {
		query += fmt.Sprintf(" AND artist ILIKE $%d", argIdx)
		args = append(args, "%"+filter.Artist+"%")
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY artist, title, id LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("query songs", err)
	}
	defer rows.Close()

	songs := make([]models.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, *song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// GetSong returns a single song by ID.
func (q *queries) GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error) {
	song, err := scanSong(q.q.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, dbErr("get song", err)
	}
	return song, nil
}

// GetSongs loads several songs at once, keyed by id. Unknown ids are absent
// from the result.
func (q *queries) GetSongs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Song, error) {
	songs := make(map[uuid.UUID]models.Song, len(ids))
	if len(ids) == 0 {
		return songs, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	rows, err := q.q.QueryContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = ANY($1::uuid[])`, pq.Array(keys))
	if err != nil {
		return nil, dbErr("get songs", err)
	}
	defer rows.Close()

	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs[song.ID] = *song
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}
	return songs, nil
}

// InsertSong persists a new song.
func (q *queries) InsertSong(ctx context.Context, song *models.Song) error {
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO songs (id, title, artist, musical_key, tempo, duration_seconds, notes, external_ref,
		                   created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		song.ID, song.Title, song.Artist, song.Key, song.Tempo, song.DurationSeconds, song.Notes,
		song.ExternalRef, song.CreatedBy, song.CreatedAt, song.UpdatedAt,
	); err != nil {
		return dbErr("insert song", err)
	}
	return nil
}

// UpdateSong writes every mutable song field.
func (q *queries) UpdateSong(ctx context.Context, song *models.Song) error {
	res, err := q.q.ExecContext(ctx, `
		UPDATE songs
		SET title = $1, artist = $2, musical_key = $3, tempo = $4, duration_seconds = $5,
		    notes = $6, external_ref = $7, updated_at = $8
		WHERE id = $9`,
		song.Title, song.Artist, song.Key, song.Tempo, song.DurationSeconds,
		song.Notes, song.ExternalRef, song.UpdatedAt, song.ID)
	if err != nil {
		return dbErr("update song", err)
	}
	return expectOne(res, ErrSongNotFound)
}

// DeleteSong removes a song from the catalog.
func (q *queries) DeleteSong(ctx context.Context, id uuid.UUID) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("delete song %s: %w", id, ErrSongInUse)
	}
	if err != nil {
		return dbErr("delete song", err)
	}
	return expectOne(res, ErrSongNotFound)
}

// SongInUse reports whether any setlist entry references the song.
func (q *queries) SongInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var inUse bool
	if err := q.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM setlist_songs WHERE song_id = $1)`, id).Scan(&inUse); err != nil {
		return false, dbErr("check song usage", err)
	}
	return inUse, nil
}
