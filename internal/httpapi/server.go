package httpapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"setlister/internal/app/setlists"
	"setlister/internal/app/songs"
	"setlister/internal/auth"
	"setlister/internal/export"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (uuid.UUID, error)
}

// BandDirectory lists the bands a user belongs to.
type BandDirectory interface {
	ListBandIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PDFRenderer renders a resolved setlist to PDF.
type PDFRenderer interface {
	Render(w io.Writer, view export.View) error
}

// PlaylistExporter pushes a resolved setlist to an external playlist.
type PlaylistExporter interface {
	Export(ctx context.Context, accessToken string, view export.View) (*export.Playlist, error)
}

// Notifications upgrades a request to a websocket subscribed to channels.
type Notifications interface {
	ServeWS(w http.ResponseWriter, r *http.Request, channels []string)
}

// Deps collects the collaborators a Server needs. Optional ones may be nil:
// the matching routes then answer 503.
type Deps struct {
	Setlists setlists.Service
	Songs    songs.Service
	Users    Authenticator
	Bands    BandDirectory
	Tokens   *auth.Issuer
	Health   Pinger
	PDF      PDFRenderer
	Spotify  PlaylistExporter
	Realtime Notifications
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	setlists setlists.Service
	songs    songs.Service
	users    Authenticator
	bands    BandDirectory
	tokens   *auth.Issuer
	health   Pinger
	pdf      PDFRenderer
	spotify  PlaylistExporter
	realtime Notifications
}

// New configures a Server.
func New(deps Deps) *Server {
	return &Server{
		setlists: deps.Setlists,
		songs:    deps.Songs,
		users:    deps.Users,
		bands:    deps.Bands,
		tokens:   deps.Tokens,
		health:   deps.Health,
		pdf:      deps.PDF,
		spotify:  deps.Spotify,
		realtime: deps.Realtime,
	}
}

// Router exposes the REST and websocket endpoints.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/shared/{token}", s.handleShared)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.tokens))

			r.Get("/ws", s.handleWebsocket)

			r.Get("/setlists", s.handleListSetlists)
			r.Post("/setlists", s.handleCreateSetlist)
			r.Route("/setlists/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSetlist)
				r.Put("/", s.handleUpdateSetlist)
				r.Delete("/", s.handleDeleteSetlist)

				r.Get("/songs", s.handleListEntries)
				r.Post("/songs", s.handleAddEntry)
				r.Put("/songs/order", s.handleReorderEntries)
				r.Delete("/songs/{songId}", s.handleRemoveSong)
				r.Delete("/entries/{entryId}", s.handleRemoveEntry)

				r.Post("/blocks", s.handleCreateBlock)
				r.Put("/blocks/order", s.handleMoveBlocks)
				r.Put("/blocks/{blockId}", s.handleRenameBlock)
				r.Delete("/blocks/{blockId}", s.handleDeleteBlock)

				r.Get("/export/pdf", s.handleExportPDF)
				r.Post("/export/spotify", s.handleExportSpotify)
				r.Post("/share", s.handleShare)
			})

			r.Get("/songs", s.handleListSongs)
			r.Post("/songs", s.handleCreateSong)
			r.Get("/songs/{id}", s.handleGetSong)
			r.Put("/songs/{id}", s.handleUpdateSong)
			r.Delete("/songs/{id}", s.handleDeleteSong)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "setlister",
	})
}
