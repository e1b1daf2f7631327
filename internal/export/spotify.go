package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"setlister/internal/store"
)

const (
	// DefaultSpotifyURL is the Spotify Web API base.
	DefaultSpotifyURL = "https://api.spotify.com/v1"

	spotifyTrackPrefix = "spotify:track:"
	spotifyOpenPrefix  = "https://open.spotify.com/track/"
	addTracksBatch     = 100
)

// Playlist describes the playlist created by an export.
type Playlist struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Name    string   `json:"name"`
	Tracks  int      `json:"tracks"`
	Missing []string `json:"missing,omitempty"`
}

// SpotifyExporter creates a private playlist in the caller's Spotify account.
// Every request is rate limited and failures are never retried.
type SpotifyExporter struct {
	baseURL string
	limiter *rate.Limiter
}

// NewSpotifyExporter returns an exporter talking to baseURL at no more than
// perSecond requests per second. A non-positive rate disables limiting.
func NewSpotifyExporter(baseURL string, perSecond float64) *SpotifyExporter {
	if baseURL == "" {
		baseURL = DefaultSpotifyURL
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &SpotifyExporter{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

type spotifyUser struct {
	ID string `json:"id"`
}

type spotifyPlaylist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []struct {
			URI string `json:"uri"`
		} `json:"items"`
	} `json:"tracks"`
}

// Export creates a playlist named after the setlist and fills it in
// performance order. Songs that cannot be matched are reported in Missing.
func (e *SpotifyExporter) Export(ctx context.Context, accessToken string, view View) (*Playlist, error) {
	if view.Setlist == nil {
		return nil, store.Invalid("setlist is required")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, store.Invalid("spotify access token is required")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	var me spotifyUser
	if err := e.do(ctx, client, http.MethodGet, "/me", nil, &me); err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(view.Setlist.Entries))
	var missing []string
	for _, entry := range view.Entries() {
		uri, err := e.resolve(ctx, client, entry.Song.Title, entry.Song.Artist, entry.Song.ExternalRef)
		if err != nil {
			return nil, err
		}
		if uri == "" {
			missing = append(missing, entry.Song.Title)
			continue
		}
		uris = append(uris, uri)
	}

	var created spotifyPlaylist
	body := map[string]any{
		"name":        view.Setlist.Name,
		"description": view.Setlist.Description,
		"public":      false,
	}
	if err := e.do(ctx, client, http.MethodPost, "/users/"+url.PathEscape(me.ID)+"/playlists", body, &created); err != nil {
		return nil, err
	}

	for start := 0; start < len(uris); start += addTracksBatch {
		end := min(start+addTracksBatch, len(uris))
		batch := map[string]any{"uris": uris[start:end]}
		if err := e.do(ctx, client, http.MethodPost, "/playlists/"+url.PathEscape(created.ID)+"/tracks", batch, nil); err != nil {
			return nil, err
		}
	}

	return &Playlist{
		ID:      created.ID,
		URL:     created.ExternalURLs.Spotify,
		Name:    created.Name,
		Tracks:  len(uris),
		Missing: missing,
	}, nil
}

func (e *SpotifyExporter) resolve(ctx context.Context, client *http.Client, title, artist, ref string) (string, error) {
	if uri := trackURI(ref); uri != "" {
		return uri, nil
	}

	q := fmt.Sprintf("track:%s", title)
	if artist != "" {
		q += fmt.Sprintf(" artist:%s", artist)
	}
	params := url.Values{
		"q":     []string{q},
		"type":  []string{"track"},
		"limit": []string{"1"},
	}

	var result spotifySearchResponse
	if err := e.do(ctx, client, http.MethodGet, "/search?"+params.Encode(), nil, &result); err != nil {
		return "", err
	}
	if len(result.Tracks.Items) == 0 {
		return "", nil
	}
	return result.Tracks.Items[0].URI, nil
}

// trackURI extracts a track URI from a stored external reference.
func trackURI(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, spotifyTrackPrefix) && len(ref) > len(spotifyTrackPrefix):
		return ref
	case strings.HasPrefix(ref, spotifyOpenPrefix):
		id := strings.TrimPrefix(ref, spotifyOpenPrefix)
		if i := strings.IndexAny(id, "?/"); i >= 0 {
			id = id[:i]
		}
		if id != "" {
			return spotifyTrackPrefix + id
		}
	}
	return ""
}

func (e *SpotifyExporter) do(ctx context.Context, client *http.Client, method, endpoint string, body, result any) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spotify rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode spotify request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create spotify request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("spotify %s %s: %w: %w", method, endpoint, store.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spotify %s %s: status %d %s: %w",
			method, endpoint, resp.StatusCode, strings.TrimSpace(string(detail)), store.ErrExternalService)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode spotify response: %w: %w", store.ErrExternalService, err)
		}
	}
	return nil
}
