package models

import (
	"time"

	"github.com/google/uuid"
)

// Song holds catalog metadata. Songs are owned independently of setlists.
type Song struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Artist          string    `json:"artist" db:"artist"`
	Key             string    `json:"key,omitempty" db:"musical_key"`
	Tempo           float64   `json:"tempo,omitempty" db:"tempo"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	ExternalRef     string    `json:"external_ref,omitempty" db:"external_ref"`
	CreatedBy       uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// SongFilter narrows catalog listings.
type SongFilter struct {
	Query  string
	Artist string
	Limit  int
}
