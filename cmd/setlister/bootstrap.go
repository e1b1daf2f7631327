package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"setlister/internal/app/setlists"
	"setlister/internal/app/songs"
	"setlister/internal/models"
	"setlister/internal/store"
)

const (
	demoUsername = "demo"
	demoPassword = "demo123"
)

type demoAccounts interface {
	CreateUser(ctx context.Context, username, password string) (uuid.UUID, error)
	CreateBand(ctx context.Context, name string, admin uuid.UUID) (uuid.UUID, error)
}

// bootstrapDemoData seeds a demo user with a band, a few songs and one
// setlist. It does nothing when the demo user already exists.
func bootstrapDemoData(ctx context.Context, accounts demoAccounts, catalog songs.Service, lists setlists.Service) error {
	userID, err := accounts.CreateUser(ctx, demoUsername, demoPassword)
	if errors.Is(err, store.ErrUserExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap demo user: %w", err)
	}

	bandID, err := accounts.CreateBand(ctx, "The Demo Tapes", userID)
	if err != nil {
		return fmt.Errorf("bootstrap demo band: %w", err)
	}

	seed := []songs.Input{
		{Title: "Teardrop", Artist: "Massive Attack", Key: "A", Tempo: 77, DurationSeconds: 330, ExternalRef: "spotify:track:67Hna13dNDkZvBpTXRIaOJ"},
		{Title: "Glory Box", Artist: "Portishead", Key: "Bm", Tempo: 117, DurationSeconds: 305},
		{Title: "No Surprises", Artist: "Radiohead", Key: "F", Tempo: 76, DurationSeconds: 229},
		{Title: "Them Changes", Artist: "Thundercat", Key: "Ebm", Tempo: 80, DurationSeconds: 188},
		{Title: "Says", Artist: "Nils Frahm", Key: "Am", Tempo: 110, DurationSeconds: 498, Notes: "Long build, watch the lights cue"},
	}

	created := make([]*models.Song, 0, len(seed))
	for _, in := range seed {
		song, err := catalog.Create(ctx, userID, in)
		if err != nil {
			return fmt.Errorf("bootstrap demo song %q: %w", in.Title, err)
		}
		created = append(created, song)
	}

	setlist, err := lists.Create(ctx, userID, setlists.CreateInput{
		Name:        "Friday at the Roundhouse",
		Description: "Demo setlist",
		BandID:      &bandID,
	})
	if err != nil {
		return fmt.Errorf("bootstrap demo setlist: %w", err)
	}

	encore, err := lists.CreateBlock(ctx, userID, setlist.ID, setlists.BlockInput{Name: "Encore"})
	if err != nil {
		return fmt.Errorf("bootstrap demo block: %w", err)
	}

	last := len(created) - 1
	for i, song := range created {
		in := setlists.AddEntryInput{SongID: song.ID, Position: i}
		if i == last {
			in.Position = 0
			in.BlockID = &encore.ID
		}
		if _, err := lists.AddEntry(ctx, userID, setlist.ID, in); err != nil {
			return fmt.Errorf("bootstrap demo entry %q: %w", song.Title, err)
		}
	}

	log.Info().Str("username", demoUsername).Str("setlist_id", setlist.ID.String()).Msg("demo data created")
	return nil
}
