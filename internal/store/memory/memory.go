// Package memory keeps the whole data set in process memory. It honours the
// same contract as the Postgres store, including all-or-nothing RunAtomic,
// and backs STORE_DRIVER=memory development runs and the application tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"setlister/internal/models"
	"setlister/internal/store"
)

type user struct {
	id       uuid.UUID
	username string
	hash     []byte
}

type memberKey struct {
	band uuid.UUID
	user uuid.UUID
}

type state struct {
	users    map[uuid.UUID]user
	bands    map[uuid.UUID]string
	members  map[memberKey]string
	songs    map[uuid.UUID]models.Song
	setlists map[uuid.UUID]models.Setlist
	blocks   map[uuid.UUID]models.Block
	entries  map[uuid.UUID]models.Entry
}

func newState() *state {
	return &state{
		users:    make(map[uuid.UUID]user),
		bands:    make(map[uuid.UUID]string),
		members:  make(map[memberKey]string),
		songs:    make(map[uuid.UUID]models.Song),
		setlists: make(map[uuid.UUID]models.Setlist),
		blocks:   make(map[uuid.UUID]models.Block),
		entries:  make(map[uuid.UUID]models.Entry),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.bands {
		c.bands[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.songs {
		c.songs[k] = v
	}
	for k, v := range s.setlists {
		c.setlists[k] = cloneSetlist(v)
	}
	for k, v := range s.blocks {
		c.blocks[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = cloneEntry(v)
	}
	return c
}

// Store is an in-memory implementation of store.Tx with transactional
// RunAtomic. Transactions are serialized.
type Store struct {
	mu sync.RWMutex
	st *state
}

var _ store.Tx = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

// RunAtomic runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) RunAtomic(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.st.clone()
	if err := fn(&view{st: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = working
	return nil
}

// ReadSnapshot runs fn with the read lock held for its whole duration, so
// no write lands between the reads fn makes. fn must only read.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.read())
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) read() *view {
	return &view{st: s.st}
}

// CreateUser registers a new user and returns its id.
func (s *Store) CreateUser(_ context.Context, username, password string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return uuid.Nil, store.Invalid("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if u.username == username {
			return uuid.Nil, store.ErrUserExists
		}
	}
	id := uuid.New()
	s.st.users[id] = user{id: id, username: username, hash: hash}
	return id, nil
}

// UserIDByName looks up a user's id.
func (s *Store) UserIDByName(_ context.Context, username string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.st.users {
		if u.username == username {
			return u.id, nil
		}
	}
	return uuid.Nil, store.ErrNotFound
}

// Authenticate validates credentials and returns the user's id.
func (s *Store) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	id, err := s.UserIDByName(ctx, username)
	if err != nil {
		return uuid.Nil, store.ErrInvalidCredentials
	}
	s.mu.RLock()
	hash := s.st.users[id].hash
	s.mu.RUnlock()
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return uuid.Nil, store.ErrInvalidCredentials
	}
	return id, nil
}

// CreateBand registers a band with the given admin.
func (s *Store) CreateBand(_ context.Context, name string, admin uuid.UUID) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, store.Invalid("band name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.st.bands[id] = name
	s.st.members[memberKey{band: id, user: admin}] = models.RoleAdmin
	return id, nil
}

// AddMember grants a user a role in a band, replacing any previous role.
func (s *Store) AddMember(_ context.Context, bandID, userID uuid.UUID, role string) error {
	if role != models.RoleMember && role != models.RoleAdmin {
		return store.Invalid("unknown band role %q", role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.bands[bandID]; !ok {
		return store.ErrBandNotFound
	}
	s.st.members[memberKey{band: bandID, user: userID}] = role
	return nil
}

// Counts reports how many blocks and entries reference a setlist. Tests use
// it to check cascades.
func (s *Store) Counts(setlistID uuid.UUID) (blocks, entries int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.st.blocks {
		if b.SetlistID == setlistID {
			blocks++
		}
	}
	for _, e := range s.st.entries {
		if e.SetlistID == setlistID {
			entries++
		}
	}
	return blocks, entries
}

func cloneSetlist(in models.Setlist) models.Setlist {
	out := in
	if in.BandID != nil {
		id := *in.BandID
		out.BandID = &id
	}
	out.Blocks = nil
	out.Entries = nil
	return out
}

func cloneEntry(in models.Entry) models.Entry {
	out := in
	if in.BlockID != nil {
		id := *in.BlockID
		out.BlockID = &id
	}
	return out
}
