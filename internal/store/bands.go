package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"setlister/internal/models"
)

// Membership returns the user's role in a band. Non-members get a zero Role.
func (q *queries) Membership(ctx context.Context, bandID, userID uuid.UUID) (models.Membership, error) {
	m := models.Membership{BandID: bandID, UserID: userID}
	err := q.q.QueryRowContext(ctx, `
		SELECT role
		FROM band_members
		WHERE band_id = $1 AND user_id = $2`, bandID, userID).Scan(&m.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil
	}
	if err != nil {
		return m, dbErr("lookup membership", err)
	}
	return m, nil
}

// ListBandIDsForUser returns the bands the user belongs to.
func (q *queries) ListBandIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT band_id
		FROM band_members
		WHERE user_id = $1
		ORDER BY band_id`, userID)
	if err != nil {
		return nil, dbErr("list bands", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan band id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bands: %w", err)
	}
	return ids, nil
}

// CreateBand registers a band with the given admin.
func (s *Store) CreateBand(ctx context.Context, name string, admin uuid.UUID) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, Invalid("band name is required")
	}

	id := uuid.New()
	err := s.RunAtomic(ctx, func(tx Tx) error {
		q := tx.(*queries)
		if _, err := q.q.ExecContext(ctx, `
			INSERT INTO bands (id, name) VALUES ($1, $2)`, id, name); err != nil {
			return dbErr("insert band", err)
		}
		return q.addMember(ctx, id, admin, models.RoleAdmin)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// AddMember grants a user a role in a band, replacing any previous role.
func (s *Store) AddMember(ctx context.Context, bandID, userID uuid.UUID, role string) error {
	return s.addMember(ctx, bandID, userID, role)
}

func (q *queries) addMember(ctx context.Context, bandID, userID uuid.UUID, role string) error {
	if role != models.RoleMember && role != models.RoleAdmin {
		return Invalid("unknown band role %q", role)
	}
	if _, err := q.q.ExecContext(ctx, `
		INSERT INTO band_members (band_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (band_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		bandID, userID, role); err != nil {
		return dbErr("insert band member", err)
	}
	return nil
}
