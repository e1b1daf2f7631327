package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"setlister/internal/models"
)

var dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// Tx is the set of persistence operations the application layer works with.
// A Store satisfies it directly (each call is its own statement) and hands a
// transaction-scoped implementation to RunAtomic callbacks.
type Tx interface {
	GetSetlist(ctx context.Context, id uuid.UUID) (*models.Setlist, error)
	ListSetlistsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Setlist, error)
	InsertSetlist(ctx context.Context, setlist *models.Setlist) error
	UpdateSetlist(ctx context.Context, setlist *models.Setlist) error
	DeleteSetlist(ctx context.Context, id uuid.UUID) error

	Membership(ctx context.Context, bandID, userID uuid.UUID) (models.Membership, error)
	ListBandIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	GetSong(ctx context.Context, id uuid.UUID) (*models.Song, error)
	GetSongs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Song, error)
	ListSongs(ctx context.Context, filter models.SongFilter) ([]models.Song, error)
	InsertSong(ctx context.Context, song *models.Song) error
	UpdateSong(ctx context.Context, song *models.Song) error
	DeleteSong(ctx context.Context, id uuid.UUID) error
	SongInUse(ctx context.Context, id uuid.UUID) (bool, error)

	ListBlocks(ctx context.Context, setlistID uuid.UUID) ([]models.Block, error)
	GetBlock(ctx context.Context, id uuid.UUID) (*models.Block, error)
	InsertBlock(ctx context.Context, block *models.Block) error
	UpdateBlock(ctx context.Context, block *models.Block) error
	DeleteBlock(ctx context.Context, id uuid.UUID) error
	DeleteBlocks(ctx context.Context, setlistID uuid.UUID) (int64, error)

	ListEntries(ctx context.Context, setlistID uuid.UUID) ([]models.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	InsertEntry(ctx context.Context, entry *models.Entry) error
	UpdateEntryPlacement(ctx context.Context, id uuid.UUID, position int, blockID *uuid.UUID) error
	UnassignBlock(ctx context.Context, blockID uuid.UUID) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	DeleteEntries(ctx context.Context, setlistID uuid.UUID) (int64, error)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements Tx over either the pool or an open transaction. Inside a
// transaction setlist reads take a row lock so concurrent mutations of one
// setlist are serialized by Postgres.
type queries struct {
	q    querier
	inTx bool
}

// Store provides persistence backed by Postgres.
type Store struct {
	queries
	db *sql.DB
}

var _ Tx = (*Store)(nil)

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{
		queries: queries{q: db},
		db:      db,
	}
}

// DB exposes the underlying handle for health checks and migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunAtomic executes fn inside a single database transaction. Either every
// write performed through the Tx handed to fn commits, or none does.
func (s *Store) RunAtomic(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("begin tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&queries{q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w: %w", ErrConflict, err)
	}
	tx = nil

	return nil
}

// ReadSnapshot runs fn inside a read-only, repeatable-read transaction so
// every query fn makes sees the same committed state. fn must only read.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return dbErr("begin read tx", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dbErr("commit read tx", err)
	}
	tx = nil

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser registers a new user and returns its id.
func (s *Store) CreateUser(ctx context.Context, username, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return uuid.Nil, Invalid("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
	`, id, username, hash); err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrUserExists
		}
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	return id, nil
}

// UserIDByName looks up a user's id.
func (s *Store) UserIDByName(ctx context.Context, username string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE username = $1
	`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("user %w", ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup user: %w", err)
	}
	return id, nil
}

// Authenticate validates credentials and returns the user's id.
func (s *Store) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	var (
		userID uuid.UUID
		hash   []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE username = $1
	`, username).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return uuid.Nil, ErrInvalidCredentials
		}
		return uuid.Nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return uuid.Nil, ErrInvalidCredentials
	}

	return userID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
