package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"setlister/internal/app/setlists"
	"setlister/internal/app/songs"
	"setlister/internal/auth"
	"setlister/internal/config"
	"setlister/internal/export"
	"setlister/internal/http/middleware"
	"setlister/internal/httpapi"
	"setlister/internal/realtime"
	"setlister/internal/store"
)

// backend is what both the Postgres and the in-memory store provide.
type backend interface {
	store.Tx
	RunAtomic(ctx context.Context, fn func(store.Tx) error) error
	ReadSnapshot(ctx context.Context, fn func(store.Tx) error) error
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, username, password string) (uuid.UUID, error)
	Authenticate(ctx context.Context, username, password string) (uuid.UUID, error)
	CreateBand(ctx context.Context, name string, admin uuid.UUID) (uuid.UUID, error)
}

type services struct {
	setlists setlists.Service
	songs    songs.Service
}

func newServices(cfg config.Config, data backend, issuer *auth.Issuer, notifier setlists.Notifier) services {
	return services{
		setlists: setlists.New(data,
			setlists.WithNotifier(notifier),
			setlists.WithShareSigner(issuer, cfg.Auth.ShareBaseURL),
		),
		songs: songs.New(data),
	}
}

func newHTTPHandler(cfg config.Config, data backend, svc services, issuer *auth.Issuer, hub *realtime.Hub) http.Handler {
	server := httpapi.New(httpapi.Deps{
		Setlists: svc.setlists,
		Songs:    svc.songs,
		Users:    data,
		Bands:    data,
		Tokens:   issuer,
		Health:   data,
		PDF:      export.NewPDFRenderer(),
		Spotify:  export.NewSpotifyExporter(cfg.Spotify.APIURL, cfg.Spotify.RateLimit),
		Realtime: hub,
	})

	return server.Router(
		middleware.RequestLogging(),
		middleware.Recovery(),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)
}
