package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"setlister/internal/config"
	"setlister/internal/logging"
)

// backoff doubles the pause between readiness checks up to a ceiling.
type backoff struct {
	first, ceiling time.Duration
	probeTimeout   time.Duration
}

var startupBackoff = backoff{first: 500 * time.Millisecond, ceiling: 5 * time.Second, probeTimeout: 5 * time.Second}

// connectPostgres opens the pool described by cfg and holds startup until
// the server answers or cfg.ConnectTimeout passes.
func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := startupBackoff.waitReady(ctx, cfg.ConnectTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres not reachable: %w", err)
	}
	return db, nil
}

// waitReady calls check until it succeeds or the wait is over.
// It returns the last check error, or ctx's error when ctx ended first.
func (b backoff) waitReady(ctx context.Context, within time.Duration, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, within)
	defer cancel()

	pause := b.first
	for attempt := 1; ; attempt++ {
		checkCtx, cancelCheck := context.WithTimeout(ctx, b.probeTimeout)
		err := check(checkCtx)
		cancelCheck()
		if err == nil {
			if attempt > 1 {
				logging.FromContext(ctx).Info().Int("attempts", attempt).Msg("postgres ready")
			}
			return nil
		}

		logging.FromContext(ctx).Warn().Err(err).Int("attempt", attempt).Dur("retry_in", pause).Msg("waiting for postgres")
		timer := time.NewTimer(pause)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			if ctx.Err() == context.DeadlineExceeded {
				return err
			}
			return ctx.Err()
		}
		pause = min(pause*2, b.ceiling)
	}
}
