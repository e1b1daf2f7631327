package songs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

// Store captures the persistence needs of the song catalog.
type Store interface {
	ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error)
	GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error)
	InsertSong(ctx context.Context, song *models.Song) error
	UpdateSong(ctx context.Context, song *models.Song) error
	DeleteSong(ctx context.Context, id uuid.UUID) error
	SongInUse(ctx context.Context, id uuid.UUID) (bool, error)
	RunAtomic(ctx context.Context, fn func(store.Tx) error) error
}

// Input holds the editable song fields.
type Input struct {
	Title           string
	Artist          string
	Key             string
	Tempo           float64
	DurationSeconds int
	Notes           string
	ExternalRef     string
}

// Service exposes the song catalog.
type Service interface {
	List(ctx context.Context, filter models.SongFilter) ([]models.Song, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Song, error)
	Create(ctx context.Context, actor uuid.UUID, in Input) (*models.Song, error)
	Update(ctx context.Context, actor, id uuid.UUID, in Input) (*models.Song, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

type service struct {
	store Store
	now   func() time.Time
}

// New constructs a song Service backed by the provided Store.
func New(st Store) Service {
	return &service{store: st, now: time.Now}
}

func (s *service) List(ctx context.Context, filter models.SongFilter) ([]models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Artist = strings.TrimSpace(filter.Artist)
	return s.store.ListSongs(ctx, filter)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.GetSong(ctx, id)
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, in Input) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	song := &models.Song{
		ID:              uuid.New(),
		Title:           in.Title,
		Artist:          in.Artist,
		Key:             in.Key,
		Tempo:           in.Tempo,
		DurationSeconds: in.DurationSeconds,
		Notes:           in.Notes,
		ExternalRef:     in.ExternalRef,
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertSong(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// Update replaces the editable fields. Only the song's creator may edit it.
func (s *service) Update(ctx context.Context, actor, id uuid.UUID, in Input) (*models.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	song, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	song.Title = in.Title
	song.Artist = in.Artist
	song.Key = in.Key
	song.Tempo = in.Tempo
	song.DurationSeconds = in.DurationSeconds
	song.Notes = in.Notes
	song.ExternalRef = in.ExternalRef
	song.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateSong(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// Delete removes a song that no setlist references.
func (s *service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RunAtomic(ctx, func(tx store.Tx) error {
		if _, err := owned(ctx, tx, actor, id); err != nil {
			return err
		}
		used, err := tx.SongInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return store.ErrSongInUse
		}
		return tx.DeleteSong(ctx, id)
	})
}

type songGetter interface {
	GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error)
}

func (s *service) owned(ctx context.Context, actor, id uuid.UUID) (*models.Song, error) {
	return owned(ctx, s.store, actor, id)
}

func owned(ctx context.Context, songs songGetter, actor, id uuid.UUID) (*models.Song, error) {
	song, err := songs.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	if song.CreatedBy != actor {
		return nil, fmt.Errorf("song %s: %w", id, store.ErrPermissionDenied)
	}
	return song, nil
}

func normalize(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.Key = strings.TrimSpace(in.Key)
	in.Notes = strings.TrimSpace(in.Notes)
	in.ExternalRef = strings.TrimSpace(in.ExternalRef)

	if in.Title == "" || in.Artist == "" {
		return in, store.Invalid("title and artist are required")
	}
	if in.Tempo < 0 {
		return in, store.Invalid("tempo must not be negative")
	}
	if in.DurationSeconds < 0 {
		return in, store.Invalid("duration must not be negative")
	}
	return in, nil
}
