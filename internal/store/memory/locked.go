package memory

import (
	"context"

	"github.com/google/uuid"

	"setlister/internal/models"
)

// Calls made on the Store itself behave like single statements outside a
// transaction: each one takes the lock for its own duration.

func (s *Store) GetSetlist(ctx context.Context, id uuid.UUID) (*models.Setlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSetlist(ctx, id)
}

func (s *Store) ListSetlistsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Setlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListSetlistsForUser(ctx, userID)
}

func (s *Store) InsertSetlist(ctx context.Context, setlist *models.Setlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertSetlist(ctx, setlist)
}

func (s *Store) UpdateSetlist(ctx context.Context, setlist *models.Setlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateSetlist(ctx, setlist)
}

func (s *Store) DeleteSetlist(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteSetlist(ctx, id)
}

func (s *Store) Membership(ctx context.Context, bandID, userID uuid.UUID) (models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().Membership(ctx, bandID, userID)
}

func (s *Store) ListBandIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListBandIDsForUser(ctx, userID)
}

func (s *Store) GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSong(ctx, id)
}

func (s *Store) GetSongs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetSongs(ctx, ids)
}

func (s *Store) ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListSongs(ctx, filter)
}

func (s *Store) InsertSong(ctx context.Context, song *models.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertSong(ctx, song)
}

func (s *Store) UpdateSong(ctx context.Context, song *models.Song) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateSong(ctx, song)
}

func (s *Store) DeleteSong(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteSong(ctx, id)
}

func (s *Store) SongInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().SongInUse(ctx, id)
}

func (s *Store) ListBlocks(ctx context.Context, setlistID uuid.UUID) ([]models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListBlocks(ctx, setlistID)
}

func (s *Store) GetBlock(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetBlock(ctx, id)
}

func (s *Store) InsertBlock(ctx context.Context, block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertBlock(ctx, block)
}

func (s *Store) UpdateBlock(ctx context.Context, block *models.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateBlock(ctx, block)
}

func (s *Store) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteBlock(ctx, id)
}

func (s *Store) DeleteBlocks(ctx context.Context, setlistID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteBlocks(ctx, setlistID)
}

func (s *Store) ListEntries(ctx context.Context, setlistID uuid.UUID) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListEntries(ctx, setlistID)
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetEntry(ctx, id)
}

func (s *Store) InsertEntry(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().InsertEntry(ctx, entry)
}

func (s *Store) UpdateEntryPlacement(ctx context.Context, id uuid.UUID, position int, blockID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UpdateEntryPlacement(ctx, id, position, blockID)
}

func (s *Store) UnassignBlock(ctx context.Context, blockID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().UnassignBlock(ctx, blockID)
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteEntry(ctx, id)
}

func (s *Store) DeleteEntries(ctx context.Context, setlistID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().DeleteEntries(ctx, setlistID)
}
