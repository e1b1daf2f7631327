package setlists

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setlister/internal/models"
	"setlister/internal/store"
	"setlister/internal/store/memory"
)

type notification struct {
	channel string
	kind    string
	event   Event
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (r *recordingNotifier) Notify(_ context.Context, channel, kind string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, _ := payload.(Event)
	r.sent = append(r.sent, notification{channel: channel, kind: kind, event: ev})
}

func (r *recordingNotifier) take() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

type fakeSigner struct{}

func (fakeSigner) IssueShare(id uuid.UUID) (string, time.Time, error) {
	return "share-" + id.String(), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (fakeSigner) ParseShare(token string) (uuid.UUID, error) {
	if len(token) <= len("share-") {
		return uuid.Nil, errors.New("malformed token")
	}
	return uuid.Parse(token[len("share-"):])
}

type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	notifier *recordingNotifier
	svc      Service
	owner    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	n := &recordingNotifier{}
	clock := &tickClock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}
	return &fixture{
		ctx:      context.Background(),
		store:    st,
		notifier: n,
		svc:      New(st, WithNotifier(n), WithShareSigner(fakeSigner{}, "https://setlister.test/"), WithClock(clock.Now)),
		owner:    uuid.New(),
	}
}

func (f *fixture) song(t *testing.T, title string) uuid.UUID {
	t.Helper()
	song := &models.Song{ID: uuid.New(), Title: title, Artist: "The Fixtures", DurationSeconds: 180, CreatedBy: f.owner}
	require.NoError(t, f.store.InsertSong(f.ctx, song))
	return song.ID
}

func (f *fixture) setlist(t *testing.T, in CreateInput) *models.Setlist {
	t.Helper()
	if in.Name == "" {
		in.Name = "Friday gig"
	}
	setlist, err := f.svc.Create(f.ctx, f.owner, in)
	require.NoError(t, err)
	return setlist
}

func (f *fixture) add(t *testing.T, setlistID, songID uuid.UUID, pos int, block *uuid.UUID) models.EntryView {
	t.Helper()
	view, err := f.svc.AddEntry(f.ctx, f.owner, setlistID, AddEntryInput{SongID: songID, Position: pos, BlockID: block})
	require.NoError(t, err)
	return *view
}

func songIDs(views []models.EntryView) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.SongID)
	}
	return ids
}

func TestAddAndReorderScenario(t *testing.T) {
	f := newFixture(t)
	s1 := f.setlist(t, CreateInput{Name: "S1"})
	songA := f.song(t, "A")
	songB := f.song(t, "B")

	entryA := f.add(t, s1.ID, songA, 1, nil)
	entryB := f.add(t, s1.ID, songB, 2, nil)

	entries, err := f.svc.ListEntries(f.ctx, f.owner, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{songA, songB}, songIDs(entries))

	_, err = f.svc.ReorderEntries(f.ctx, f.owner, s1.ID, []Placement{
		{EntryID: entryA.ID, Position: 2},
		{EntryID: entryB.ID, Position: 1},
	})
	require.NoError(t, err)

	entries, err = f.svc.ListEntries(f.ctx, f.owner, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{songB, songA}, songIDs(entries))
}

func TestReorderIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	block, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Set 1"})
	require.NoError(t, err)

	a := f.add(t, s.ID, f.song(t, "A"), 0, nil)
	b := f.add(t, s.ID, f.song(t, "B"), 1, nil)
	c := f.add(t, s.ID, f.song(t, "C"), 2, nil)

	placements := []Placement{
		{EntryID: c.ID, Position: 0, BlockID: &block.ID},
		{EntryID: a.ID, Position: 1, BlockID: &block.ID},
		{EntryID: b.ID, Position: 5},
	}
	first, err := f.svc.ReorderEntries(f.ctx, f.owner, s.ID, placements)
	require.NoError(t, err)
	second, err := f.svc.ReorderEntries(f.ctx, f.owner, s.ID, placements)
	require.NoError(t, err)

	assert.Equal(t, songIDs(first), songIDs(second))
	assert.Equal(t, []uuid.UUID{b.SongID, c.SongID, a.SongID}, songIDs(second))
}

func TestReorderIsAtomic(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	a := f.add(t, s.ID, f.song(t, "A"), 1, nil)
	b := f.add(t, s.ID, f.song(t, "B"), 2, nil)
	f.notifier.take()

	_, err := f.svc.ReorderEntries(f.ctx, f.owner, s.ID, []Placement{
		{EntryID: a.ID, Position: 20},
		{EntryID: b.ID, Position: 10},
		{EntryID: uuid.New(), Position: 30},
	})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 2, entries[1].Position)
	assert.Empty(t, f.notifier.take(), "failed mutations must not notify")
}

func TestReorderRejectsForeignEntriesAndClashes(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	other := f.setlist(t, CreateInput{Name: "Other"})
	a := f.add(t, s.ID, f.song(t, "A"), 1, nil)
	b := f.add(t, s.ID, f.song(t, "B"), 2, nil)
	foreign := f.add(t, other.ID, f.song(t, "C"), 1, nil)
	foreignBlock, err := f.svc.CreateBlock(f.ctx, f.owner, other.ID, BlockInput{Name: "Elsewhere"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		placements []Placement
	}{
		{"empty", nil},
		{"duplicate entry", []Placement{{EntryID: a.ID, Position: 3}, {EntryID: a.ID, Position: 4}}},
		{"negative position", []Placement{{EntryID: a.ID, Position: -1}}},
		{"entry from another setlist", []Placement{{EntryID: a.ID, Position: 7}, {EntryID: foreign.ID, Position: 8}}},
		{"block from another setlist", []Placement{{EntryID: a.ID, Position: 7, BlockID: &foreignBlock.ID}}},
		{"clash with untouched entry", []Placement{{EntryID: a.ID, Position: 2}}},
		{"clash between touched entries", []Placement{{EntryID: a.ID, Position: 9}, {EntryID: b.ID, Position: 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReorderEntries(f.ctx, f.owner, s.ID, tt.placements)
			require.ErrorIs(t, err, store.ErrInvalidInput)

			entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{a.SongID, b.SongID}, songIDs(entries))
			assert.Equal(t, 1, entries[0].Position)
		})
	}
}

func TestListEntriesStaysOrdered(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	rng := rand.New(rand.NewSource(42))

	var blocks []uuid.UUID
	for i := 0; i < 3; i++ {
		b, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: fmt.Sprintf("Set %d", i+1)})
		require.NoError(t, err)
		blocks = append(blocks, b.ID)
	}
	pickBlock := func() *uuid.UUID {
		n := rng.Intn(len(blocks) + 1)
		if n == len(blocks) {
			return nil
		}
		id := blocks[n]
		return &id
	}
	songs := make([]uuid.UUID, 6)
	for i := range songs {
		songs[i] = f.song(t, fmt.Sprintf("Song %d", i))
	}

	for step := 0; step < 60; step++ {
		entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
		require.NoError(t, err)

		switch op := rng.Intn(3); {
		case op == 0 || len(entries) == 0:
			_, err = f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{
				SongID: songs[rng.Intn(len(songs))], Position: rng.Intn(20), BlockID: pickBlock(),
			})
			require.NoError(t, err)
		case op == 1:
			err = f.svc.RemoveEntry(f.ctx, f.owner, s.ID, entries[rng.Intn(len(entries))].SongID)
			require.NoError(t, err)
		default:
			target := entries[rng.Intn(len(entries))]
			_, err = f.svc.ReorderEntries(f.ctx, f.owner, s.ID, []Placement{
				{EntryID: target.ID, Position: 100 + step, BlockID: pickBlock()},
			})
			require.NoError(t, err)
		}

		setlist, err := f.svc.Get(f.ctx, f.owner, s.ID)
		require.NoError(t, err)
		rank := map[uuid.UUID]int{}
		for _, b := range setlist.Blocks {
			rank[b.ID] = b.Position + 1
		}
		for i := 1; i < len(setlist.Entries); i++ {
			prev, cur := setlist.Entries[i-1], setlist.Entries[i]
			rp, rc := 0, 0
			if prev.BlockID != nil {
				rp = rank[*prev.BlockID]
			}
			if cur.BlockID != nil {
				rc = rank[*cur.BlockID]
			}
			require.LessOrEqual(t, rp, rc, "step %d: blocks out of order", step)
			if rp == rc {
				require.LessOrEqual(t, prev.Position, cur.Position, "step %d: positions out of order", step)
			}
		}
	}
}

// Each cycle creates block "Set N", adds "Song N" to it and deletes the block
// again, which moves the entry out. A consistent read that still lists
// "Set N" must show "Song N" inside it.
func TestReadsNeverSeeHalfAMutation(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})

	const cycles = 150
	songs := make([]uuid.UUID, cycles)
	for i := range songs {
		songs[i] = f.song(t, fmt.Sprintf("Song %d", i))
	}

	done := make(chan struct{})
	torn := make(chan string, 1)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				setlist, err := f.svc.Get(f.ctx, f.owner, s.ID)
				if err != nil {
					continue
				}
				blockByName := map[string]uuid.UUID{}
				for _, b := range setlist.Blocks {
					blockByName[b.Name] = b.ID
				}
				for _, e := range setlist.Entries {
					var n int
					if _, err := fmt.Sscanf(e.Song.Title, "Song %d", &n); err != nil {
						continue
					}
					id, listed := blockByName[fmt.Sprintf("Set %d", n)]
					if listed && (e.BlockID == nil || *e.BlockID != id) {
						select {
						case torn <- fmt.Sprintf("block Set %d listed while Song %d is outside it", n, n):
						default:
						}
					}
				}
			}
		}()
	}

	for i := 0; i < cycles; i++ {
		b, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: fmt.Sprintf("Set %d", i)})
		require.NoError(t, err)
		f.add(t, s.ID, songs[i], 0, &b.ID)
		require.NoError(t, f.svc.DeleteBlock(f.ctx, f.owner, s.ID, b.ID))
	}
	close(done)
	wg.Wait()

	select {
	case msg := <-torn:
		t.Fatalf("read mixed two states: %s", msg)
	default:
	}
}

func TestRemoveEntry(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	block, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Encore"})
	require.NoError(t, err)
	song := f.song(t, "Reprise")
	other := f.song(t, "Other")

	inEncore := f.add(t, s.ID, song, 0, &block.ID)
	unassigned := f.add(t, s.ID, song, 3, nil)
	f.add(t, s.ID, other, 1, nil)

	require.NoError(t, f.svc.RemoveEntry(f.ctx, f.owner, s.ID, song))
	entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, inEncore.ID, entries[1].ID, "the unassigned occurrence is first in performance order")
	assert.NotEqual(t, unassigned.ID, entries[0].ID)

	err = f.svc.RemoveEntry(f.ctx, f.owner, s.ID, uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.svc.RemoveEntryByID(f.ctx, f.owner, s.ID, inEncore.ID))
	err = f.svc.RemoveEntryByID(f.ctx, f.owner, s.ID, inEncore.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAddEntryValidation(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	other := f.setlist(t, CreateInput{Name: "Other"})
	foreign, err := f.svc.CreateBlock(f.ctx, f.owner, other.ID, BlockInput{Name: "Set 1"})
	require.NoError(t, err)
	song := f.song(t, "A")
	missing := uuid.New()

	_, err = f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{SongID: uuid.New()})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{SongID: song, BlockID: &foreign.ID})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{SongID: song, BlockID: &missing})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{SongID: song, Position: -1})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	// Zero and gapped positions are fine; only negatives are refused.
	for _, pos := range []int{0, 100} {
		e, err := f.svc.AddEntry(f.ctx, f.owner, s.ID, AddEntryInput{SongID: song, Position: pos})
		require.NoError(t, err)
		require.NoError(t, f.svc.RemoveEntryByID(f.ctx, f.owner, s.ID, e.ID))
	}

	_, err = f.svc.AddEntry(f.ctx, f.owner, uuid.New(), AddEntryInput{SongID: song})
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := f.add(t, s.ID, song, 4, nil)
	second := f.add(t, s.ID, song, 4, nil)
	entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, second.ID, entries[1].ID)
}

func TestStrangerIsDeniedEverything(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	song := f.song(t, "A")
	entry := f.add(t, s.ID, song, 0, nil)
	block, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Set 1"})
	require.NoError(t, err)
	stranger := uuid.New()
	name := "renamed"

	ops := map[string]func() error{
		"get": func() error { _, err := f.svc.Get(f.ctx, stranger, s.ID); return err },
		"list entries": func() error {
			_, err := f.svc.ListEntries(f.ctx, stranger, s.ID)
			return err
		},
		"update": func() error {
			_, err := f.svc.Update(f.ctx, stranger, s.ID, UpdateInput{Name: &name})
			return err
		},
		"delete": func() error { return f.svc.Delete(f.ctx, stranger, s.ID) },
		"add": func() error {
			_, err := f.svc.AddEntry(f.ctx, stranger, s.ID, AddEntryInput{SongID: song})
			return err
		},
		"remove":       func() error { return f.svc.RemoveEntry(f.ctx, stranger, s.ID, song) },
		"remove by id": func() error { return f.svc.RemoveEntryByID(f.ctx, stranger, s.ID, entry.ID) },
		"reorder": func() error {
			_, err := f.svc.ReorderEntries(f.ctx, stranger, s.ID, []Placement{{EntryID: entry.ID, Position: 3}})
			return err
		},
		"create block": func() error {
			_, err := f.svc.CreateBlock(f.ctx, stranger, s.ID, BlockInput{Name: "x"})
			return err
		},
		"rename block": func() error {
			_, err := f.svc.RenameBlock(f.ctx, stranger, s.ID, block.ID, "x")
			return err
		},
		"move blocks": func() error {
			_, err := f.svc.MoveBlocks(f.ctx, stranger, s.ID, []uuid.UUID{block.ID})
			return err
		},
		"delete block": func() error { return f.svc.DeleteBlock(f.ctx, stranger, s.ID, block.ID) },
		"share": func() error {
			_, err := f.svc.Share(f.ctx, stranger, s.ID)
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, op(), store.ErrPermissionDenied)
		})
	}

	entries, err := f.svc.ListEntries(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBandMemberAndAdminAsymmetry(t *testing.T) {
	f := newFixture(t)
	admin := uuid.New()
	member := uuid.New()
	band, err := f.store.CreateBand(f.ctx, "The Fixtures", admin)
	require.NoError(t, err)
	require.NoError(t, f.store.AddMember(f.ctx, band, member, models.RoleMember))
	require.NoError(t, f.store.AddMember(f.ctx, band, f.owner, models.RoleMember))

	s := f.setlist(t, CreateInput{BandID: &band})
	song := f.song(t, "A")

	// Any member may work on entries.
	view, err := f.svc.AddEntry(f.ctx, member, s.ID, AddEntryInput{SongID: song})
	require.NoError(t, err)
	_, err = f.svc.ReorderEntries(f.ctx, member, s.ID, []Placement{{EntryID: view.ID, Position: 4}})
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveEntry(f.ctx, member, s.ID, song))

	// Only the admin (or creator) may change the setlist itself.
	name := "Renamed"
	_, err = f.svc.Update(f.ctx, member, s.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, store.ErrPermissionDenied)
	require.ErrorIs(t, f.svc.Delete(f.ctx, member, s.ID), store.ErrPermissionDenied)

	updated, err := f.svc.Update(f.ctx, admin, s.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	listed, err := f.svc.List(f.ctx, member)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, s.ID, listed[0].ID)

	require.NoError(t, f.svc.Delete(f.ctx, admin, s.ID))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	band, err := f.store.CreateBand(f.ctx, "Not mine", uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, f.owner, CreateInput{Name: "   "})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = f.svc.Create(f.ctx, f.owner, CreateInput{Name: "Gig", BandID: &band})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	s := f.setlist(t, CreateInput{})
	empty := ""
	_, err = f.svc.Update(f.ctx, f.owner, s.ID, UpdateInput{Name: &empty})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestPublicSetlistIsReadOnlyForStrangers(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{IsPublic: true})
	f.add(t, s.ID, f.song(t, "A"), 0, nil)
	stranger := uuid.New()

	entries, err := f.svc.ListEntries(f.ctx, stranger, s.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = f.svc.AddEntry(f.ctx, stranger, s.ID, AddEntryInput{SongID: entries[0].SongID})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	song := f.song(t, "A")

	var blocks []uuid.UUID
	for i := 0; i < 3; i++ {
		b, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: fmt.Sprintf("Set %d", i+1)})
		require.NoError(t, err)
		blocks = append(blocks, b.ID)
	}
	for i := 0; i < 10; i++ {
		block := blocks[i%3]
		f.add(t, s.ID, song, i, &block)
	}
	nBlocks, nEntries := f.store.Counts(s.ID)
	require.Equal(t, 3, nBlocks)
	require.Equal(t, 10, nEntries)

	require.NoError(t, f.svc.Delete(f.ctx, f.owner, s.ID))

	nBlocks, nEntries = f.store.Counts(s.ID)
	assert.Zero(t, nBlocks)
	assert.Zero(t, nEntries)
	_, err := f.svc.Get(f.ctx, f.owner, s.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlockLifecycle(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})

	set1, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Set 1"})
	require.NoError(t, err)
	encore, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Encore"})
	require.NoError(t, err)
	zero := 0
	opener, err := f.svc.CreateBlock(f.ctx, f.owner, s.ID, BlockInput{Name: "Opener", Position: &zero})
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, []string{"Opener", "Set 1", "Encore"}, blockNames(got.Blocks))
	for i, b := range got.Blocks {
		assert.Equal(t, i, b.Position)
	}

	moved, err := f.svc.MoveBlocks(f.ctx, f.owner, s.ID, []uuid.UUID{encore.ID, set1.ID, opener.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"Encore", "Set 1", "Opener"}, blockNames(moved))

	_, err = f.svc.MoveBlocks(f.ctx, f.owner, s.ID, []uuid.UUID{encore.ID, encore.ID, opener.ID})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	_, err = f.svc.MoveBlocks(f.ctx, f.owner, s.ID, []uuid.UUID{encore.ID})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	renamed, err := f.svc.RenameBlock(f.ctx, f.owner, s.ID, set1.ID, "Main set")
	require.NoError(t, err)
	assert.Equal(t, "Main set", renamed.Name)

	entry := f.add(t, s.ID, f.song(t, "A"), 7, &set1.ID)
	require.NoError(t, f.svc.DeleteBlock(f.ctx, f.owner, s.ID, set1.ID))

	got, err = f.svc.Get(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Encore", "Opener"}, blockNames(got.Blocks))
	assert.Equal(t, 1, got.Blocks[1].Position)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, entry.ID, got.Entries[0].ID)
	assert.Nil(t, got.Entries[0].BlockID)
	assert.Equal(t, 7, got.Entries[0].Position)

	err = f.svc.DeleteBlock(f.ctx, f.owner, s.ID, set1.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func blockNames(blocks []models.Block) []string {
	names := make([]string, 0, len(blocks))
	for _, b := range blocks {
		names = append(names, b.Name)
	}
	return names
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	band, err := f.store.CreateBand(f.ctx, "The Fixtures", f.owner)
	require.NoError(t, err)

	personal := f.setlist(t, CreateInput{})
	sent := f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, UserChannel(f.owner), sent[0].channel)
	assert.Equal(t, EventSetlistCreated, sent[0].kind)

	banded := f.setlist(t, CreateInput{BandID: &band})
	f.notifier.take()

	song := f.song(t, "A")
	f.add(t, banded.ID, song, 0, nil)
	sent = f.notifier.take()
	require.Len(t, sent, 2)
	assert.Equal(t, BandChannel(band), sent[0].channel)
	assert.Equal(t, UserChannel(f.owner), sent[1].channel)
	for _, n := range sent {
		assert.Equal(t, EventSongAdded, n.kind)
		assert.Equal(t, banded.ID, n.event.SetlistID)
		require.NotNil(t, n.event.Setlist)
		assert.Len(t, n.event.Setlist.Entries, 1)
	}

	require.NoError(t, f.svc.Delete(f.ctx, f.owner, personal.ID))
	sent = f.notifier.take()
	require.Len(t, sent, 1)
	assert.Equal(t, EventSetlistDeleted, sent[0].kind)
	assert.Nil(t, sent[0].event.Setlist)
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	s := f.setlist(t, CreateInput{})
	f.add(t, s.ID, f.song(t, "A"), 0, nil)

	link, err := f.svc.Share(f.ctx, f.owner, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://setlister.test/api/v1/shared/"+link.Token, link.URL)

	shared, err := f.svc.Shared(f.ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, shared.ID)
	assert.Len(t, shared.Entries, 1)

	_, err = f.svc.Shared(f.ctx, "garbage")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.svc.Delete(f.ctx, f.owner, s.ID))
	_, err = f.svc.Shared(f.ctx, link.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	plain := New(f.store)
	_, err = plain.Share(f.ctx, f.owner, s.ID)
	assert.ErrorIs(t, err, ErrSharingDisabled)
}
