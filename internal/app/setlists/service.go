// Package setlists implements the setlist aggregate: access rules, the
// block/position model for entries, and mutation events.
package setlists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"setlister/internal/models"
	"setlister/internal/store"
)

// Store captures the persistence needs of the setlist workflows. Mutations go
// through RunAtomic; multi-query reads go through ReadSnapshot so they never
// see half of a concurrent mutation.
type Store interface {
	store.Tx
	RunAtomic(ctx context.Context, fn func(store.Tx) error) error
	ReadSnapshot(ctx context.Context, fn func(store.Tx) error) error
}

// ShareSigner issues and verifies share tokens for setlists.
type ShareSigner interface {
	IssueShare(setlistID uuid.UUID) (token string, expiresAt time.Time, err error)
	ParseShare(token string) (uuid.UUID, error)
}

// CreateInput holds the fields of a new setlist.
type CreateInput struct {
	Name        string
	Description string
	BandID      *uuid.UUID
	IsPublic    bool
}

// UpdateInput holds a partial setlist update. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	IsPublic    *bool
}

// AddEntryInput places a song into a setlist.
type AddEntryInput struct {
	SongID   uuid.UUID
	Position int
	BlockID  *uuid.UUID
	Notes    string
}

// Placement assigns an entry a position and block. A nil BlockID moves the
// entry to the unassigned block.
type Placement struct {
	EntryID  uuid.UUID
	Position int
	BlockID  *uuid.UUID
}

// BlockInput describes a new block. A nil Position appends it.
type BlockInput struct {
	Name     string
	Position *int
}

// ShareLink is a signed, expiring read-only link to a setlist.
type ShareLink struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrSharingDisabled is returned by Share and Shared when no signer is configured.
var ErrSharingDisabled = errors.New("setlist sharing is not configured")

// Service coordinates setlist operations on behalf of an authenticated actor.
type Service interface {
	List(ctx context.Context, actor uuid.UUID) ([]*models.Setlist, error)
	Get(ctx context.Context, actor, id uuid.UUID) (*models.Setlist, error)
	Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*models.Setlist, error)
	Update(ctx context.Context, actor, id uuid.UUID, in UpdateInput) (*models.Setlist, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error

	ListEntries(ctx context.Context, actor, id uuid.UUID) ([]models.EntryView, error)
	Sections(ctx context.Context, actor, id uuid.UUID) (*models.Setlist, []models.Section, error)
	AddEntry(ctx context.Context, actor, id uuid.UUID, in AddEntryInput) (*models.EntryView, error)
	RemoveEntry(ctx context.Context, actor, id, songID uuid.UUID) error
	RemoveEntryByID(ctx context.Context, actor, id, entryID uuid.UUID) error
	ReorderEntries(ctx context.Context, actor, id uuid.UUID, placements []Placement) ([]models.EntryView, error)

	CreateBlock(ctx context.Context, actor, id uuid.UUID, in BlockInput) (*models.Block, error)
	RenameBlock(ctx context.Context, actor, id, blockID uuid.UUID, name string) (*models.Block, error)
	MoveBlocks(ctx context.Context, actor, id uuid.UUID, order []uuid.UUID) ([]models.Block, error)
	DeleteBlock(ctx context.Context, actor, id, blockID uuid.UUID) error

	Share(ctx context.Context, actor, id uuid.UUID) (*ShareLink, error)
	Shared(ctx context.Context, token string) (*models.Setlist, error)
}

// Option customises a Service.
type Option func(*service)

// WithNotifier sets the sink for mutation events.
func WithNotifier(n Notifier) Option {
	return func(s *service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithShareSigner enables share links. baseURL prefixes the returned URL.
func WithShareSigner(signer ShareSigner, baseURL string) Option {
	return func(s *service) {
		s.signer = signer
		s.shareBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	store        Store
	notifier     Notifier
	signer       ShareSigner
	shareBaseURL string
	now          func() time.Time
}

// New constructs a Service backed by the provided Store.
func New(st Store, opts ...Option) Service {
	s := &service{
		store:    st,
		notifier: nopNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) List(ctx context.Context, actor uuid.UUID) ([]*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListSetlistsForUser(ctx, actor)
}

func (s *service) Get(ctx context.Context, actor, id uuid.UUID) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var setlist *models.Setlist
	err := s.store.ReadSnapshot(ctx, func(q store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, q, actor, id, ActionRead)
		if err != nil {
			return err
		}
		return loadContents(ctx, q, setlist)
	})
	if err != nil {
		return nil, err
	}
	return setlist, nil
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, store.Invalid("setlist name is required")
	}

	now := s.clock()
	setlist := &models.Setlist{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		BandID:      in.BandID,
		CreatedBy:   actor,
		IsPublic:    in.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		if setlist.BandID != nil {
			m, err := tx.Membership(ctx, *setlist.BandID, actor)
			if err != nil {
				return err
			}
			if !m.IsMember() {
				return fmt.Errorf("create setlist in band %s: %w", *setlist.BandID, store.ErrPermissionDenied)
			}
		}
		return tx.InsertSetlist(ctx, setlist)
	})
	if err != nil {
		return nil, err
	}

	setlist.Blocks = []models.Block{}
	setlist.Entries = []models.EntryView{}
	s.publish(ctx, actor, setlist, Event{Kind: EventSetlistCreated, Setlist: setlist})
	return setlist, nil
}

func (s *service) Update(ctx context.Context, actor, id uuid.UUID, in UpdateInput) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, store.Invalid("setlist name cannot be empty")
	}

	var setlist *models.Setlist
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionManage)
		if err != nil {
			return err
		}
		if in.Name != nil {
			setlist.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			setlist.Description = strings.TrimSpace(*in.Description)
		}
		if in.IsPublic != nil {
			setlist.IsPublic = *in.IsPublic
		}
		setlist.UpdatedAt = s.clock()
		if err := tx.UpdateSetlist(ctx, setlist); err != nil {
			return err
		}
		return loadContents(ctx, tx, setlist)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventSetlistUpdated, Setlist: setlist})
	return setlist, nil
}

// Delete removes entries, then blocks, then the setlist in one transaction.
func (s *service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var setlist *models.Setlist
	err := s.store.RunAtomic(ctx, func(tx store.Tx) error {
		var err error
		setlist, err = s.authorize(ctx, tx, actor, id, ActionManage)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteEntries(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteBlocks(ctx, id); err != nil {
			return err
		}
		return tx.DeleteSetlist(ctx, id)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, actor, setlist, Event{Kind: EventSetlistDeleted})
	return nil
}

func (s *service) Share(ctx context.Context, actor, id uuid.UUID) (*ShareLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, ErrSharingDisabled
	}
	if _, err := s.authorize(ctx, s.store, actor, id, ActionEdit); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.IssueShare(id)
	if err != nil {
		return nil, fmt.Errorf("issue share token: %w", err)
	}
	return &ShareLink{
		Token:     token,
		URL:       s.shareBaseURL + "/api/v1/shared/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// Shared resolves a share token to a read-only view. Access is granted by the
// token alone, whatever the setlist's visibility.
func (s *service) Shared(ctx context.Context, token string) (*models.Setlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.signer == nil {
		return nil, ErrSharingDisabled
	}
	id, err := s.signer.ParseShare(token)
	if err != nil {
		return nil, fmt.Errorf("share link %w: %w", store.ErrNotFound, err)
	}

	var setlist *models.Setlist
	err = s.store.ReadSnapshot(ctx, func(q store.Tx) error {
		var err error
		setlist, err = q.GetSetlist(ctx, id)
		if err != nil {
			return err
		}
		return loadContents(ctx, q, setlist)
	})
	if err != nil {
		return nil, err
	}
	return setlist, nil
}

// authorize loads the setlist through q and checks actor may perform action.
func (s *service) authorize(ctx context.Context, q store.Tx, actor, id uuid.UUID, action Action) (*models.Setlist, error) {
	setlist, err := q.GetSetlist(ctx, id)
	if err != nil {
		return nil, err
	}

	var membership models.Membership
	if setlist.BandID != nil && setlist.CreatedBy != actor {
		membership, err = q.Membership(ctx, *setlist.BandID, actor)
		if err != nil {
			return nil, err
		}
	}

	if err := Authorize(actor, setlist, membership, action); err != nil {
		return nil, err
	}
	return setlist, nil
}

// loadContents fills in the blocks and ordered entries of setlist.
func loadContents(ctx context.Context, q store.Tx, setlist *models.Setlist) error {
	blocks, err := q.ListBlocks(ctx, setlist.ID)
	if err != nil {
		return err
	}
	entries, err := q.ListEntries(ctx, setlist.ID)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(entries))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.SongID]; ok {
			continue
		}
		seen[e.SongID] = struct{}{}
		ids = append(ids, e.SongID)
	}
	songs, err := q.GetSongs(ctx, ids)
	if err != nil {
		return err
	}

	setlist.Blocks = sortBlocks(blocks)
	setlist.Entries = resolve(blocks, entries, songs)
	return nil
}

// publish hands ev to every channel interested in setlist. It never fails.
func (s *service) publish(ctx context.Context, actor uuid.UUID, setlist *models.Setlist, ev Event) {
	ev.SetlistID = setlist.ID
	ev.Actor = actor
	ev.At = s.clock()
	for _, channel := range Channels(actor, setlist) {
		s.notifier.Notify(ctx, channel, ev.Kind, ev)
	}
}

func (s *service) clock() time.Time {
	return s.now().UTC()
}
