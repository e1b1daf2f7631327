package models

import (
	"time"

	"github.com/google/uuid"
)

// Band roles recognised by the access rules.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Block is a named, ordered partition of a setlist ("Set 1", "Encore").
type Block struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SetlistID uuid.UUID `json:"setlist_id" db:"setlist_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"`
}

// Entry links a song into a setlist. Position orders the entry within its
// block; a nil BlockID places it in the unassigned block.
type Entry struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SetlistID uuid.UUID  `json:"setlist_id" db:"setlist_id"`
	SongID    uuid.UUID  `json:"song_id" db:"song_id"`
	Position  int        `json:"position" db:"position"`
	BlockID   *uuid.UUID `json:"block_id,omitempty" db:"block_id"`
	Notes     string     `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Setlist is an ordered, optionally band-owned collection of song entries.
type Setlist struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description,omitempty" db:"description"`
	BandID      *uuid.UUID  `json:"band_id,omitempty" db:"band_id"`
	CreatedBy   uuid.UUID   `json:"created_by" db:"created_by"`
	IsPublic    bool        `json:"is_public" db:"is_public"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
	Blocks      []Block     `json:"blocks,omitempty"`
	Entries     []EntryView `json:"entries,omitempty"`
}

// Membership describes a user's role inside a band. A zero Role means the
// user is not a member.
type Membership struct {
	BandID uuid.UUID `json:"band_id" db:"band_id"`
	UserID uuid.UUID `json:"user_id" db:"user_id"`
	Role   string    `json:"role" db:"role"`
}

// IsMember reports whether the membership grants any band role.
func (m Membership) IsMember() bool {
	return m.Role == RoleMember || m.Role == RoleAdmin
}

// IsAdmin reports whether the membership grants the admin role.
func (m Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}

// EntryView is an entry resolved against its song and block.
type EntryView struct {
	Entry
	Song      Song   `json:"song"`
	BlockName string `json:"block_name,omitempty"`
}

// Section groups the ordered entries of one block. Block is nil for the
// unassigned block.
type Section struct {
	Block   *Block      `json:"block,omitempty"`
	Entries []EntryView `json:"entries"`
}

// Duration sums the song durations of the section.
func (s Section) Duration() time.Duration {
	var total int
	for _, e := range s.Entries {
		total += e.Song.DurationSeconds
	}
	return time.Duration(total) * time.Second
}
