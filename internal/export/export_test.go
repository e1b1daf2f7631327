package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setlister/internal/models"
	"setlister/internal/store"
)

func sampleView(n int) View {
	setlist := &models.Setlist{ID: uuid.New(), Name: "Friday Show", Description: "Two sets and an encore"}
	encore := &models.Block{ID: uuid.New(), SetlistID: setlist.ID, Name: "Encore", Position: 0}

	var opening, closing []models.EntryView
	for i := 0; i < n; i++ {
		song := models.Song{
			ID:              uuid.New(),
			Title:           fmt.Sprintf("Song %03d", i),
			Artist:          "The Band",
			Key:             "Am",
			Tempo:           120,
			DurationSeconds: 200,
			ExternalRef:     fmt.Sprintf("spotify:track:id%03d", i),
		}
		view := models.EntryView{Entry: models.Entry{ID: uuid.New(), SetlistID: setlist.ID, SongID: song.ID, Position: i}, Song: song}
		if i == n-1 {
			view.BlockID = &encore.ID
			view.BlockName = encore.Name
			closing = append(closing, view)
			continue
		}
		opening = append(opening, view)
	}

	sections := []models.Section{
		{Entries: opening},
		{Block: encore, Entries: closing},
	}
	for _, s := range sections {
		setlist.Entries = append(setlist.Entries, s.Entries...)
	}
	setlist.Blocks = []models.Block{*encore}
	return View{Setlist: setlist, Sections: sections}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "3:20", formatDuration(200*time.Second))
	assert.Equal(t, "1:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestPDFRenderer(t *testing.T) {
	view := sampleView(3)

	var buf bytes.Buffer
	r := &PDFRenderer{Compress: false}
	require.NoError(t, r.Render(&buf, view))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "Friday Show")
	assert.Contains(t, out, "Encore")
	assert.Contains(t, out, "Song 002")
	assert.Contains(t, out, "Total time: 10:00")
}

func TestPDFRendererRequiresSetlist(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, NewPDFRenderer().Render(&buf, View{}))
}

func TestTrackURI(t *testing.T) {
	assert.Equal(t, "spotify:track:abc", trackURI("spotify:track:abc"))
	assert.Equal(t, "spotify:track:abc", trackURI("https://open.spotify.com/track/abc?si=123"))
	assert.Empty(t, trackURI("spotify:track:"))
	assert.Empty(t, trackURI("isrc:USRC17607839"))
}

type fakeSpotify struct {
	mu       sync.Mutex
	requests []string
	batches  [][]string
	auth     []string
	failOn   string
}

func (f *fakeSpotify) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.mu.Unlock()

		if f.failOn != "" && r.URL.Path == f.failOn {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/me":
			fmt.Fprint(w, `{"id":"musician"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/search":
			if strings.Contains(r.URL.Query().Get("q"), "Unknown") {
				fmt.Fprint(w, `{"tracks":{"items":[]}}`)
				return
			}
			fmt.Fprint(w, `{"tracks":{"items":[{"uri":"spotify:track:found"}]}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/users/musician/playlists":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id":"pl1","name":"Friday Show","external_urls":{"spotify":"https://open.spotify.com/playlist/pl1"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
			var body struct {
				URIs []string `json:"uris"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.batches = append(f.batches, body.URIs)
			f.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"snapshot_id":"s"}`)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestSpotifyExportBatchesTracks(t *testing.T) {
	fake := &fakeSpotify{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	view := sampleView(150)
	playlist, err := NewSpotifyExporter(server.URL, 0).Export(context.Background(), "tok", view)
	require.NoError(t, err)

	assert.Equal(t, "pl1", playlist.ID)
	assert.Equal(t, "https://open.spotify.com/playlist/pl1", playlist.URL)
	assert.Equal(t, 150, playlist.Tracks)
	assert.Empty(t, playlist.Missing)

	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], 100)
	assert.Len(t, fake.batches[1], 50)
	assert.Equal(t, "spotify:track:id000", fake.batches[0][0])
	assert.Equal(t, "spotify:track:id149", fake.batches[1][49])

	for _, header := range fake.auth {
		assert.Equal(t, "Bearer tok", header)
	}
}

func TestSpotifyExportSearchesUnlinkedSongs(t *testing.T) {
	fake := &fakeSpotify{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	view := sampleView(2)
	view.Sections[0].Entries[0].Song.ExternalRef = ""
	view.Sections[1].Entries[0].Song.ExternalRef = ""
	view.Sections[1].Entries[0].Song.Title = "Unknown Jam"

	playlist, err := NewSpotifyExporter(server.URL, 0).Export(context.Background(), "tok", view)
	require.NoError(t, err)

	assert.Equal(t, 1, playlist.Tracks)
	assert.Equal(t, []string{"Unknown Jam"}, playlist.Missing)
	require.Len(t, fake.batches, 1)
	assert.Equal(t, []string{"spotify:track:found"}, fake.batches[0])
}

func TestSpotifyExportFailureIsNotRetried(t *testing.T) {
	fake := &fakeSpotify{failOn: "/users/musician/playlists"}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	_, err := NewSpotifyExporter(server.URL, 50).Export(context.Background(), "tok", sampleView(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrExternalService)

	assert.Equal(t, []string{"GET /me", "POST /users/musician/playlists"}, fake.requests)
}

func TestSpotifyExportValidation(t *testing.T) {
	e := NewSpotifyExporter("", 0)
	_, err := e.Export(context.Background(), "", sampleView(1))
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = e.Export(context.Background(), "tok", View{})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
