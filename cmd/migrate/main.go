package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"setlister/internal/logging"
	"setlister/internal/store"
)

func main() {
	logging.SetGlobal(logging.New(logging.Config{Level: "info", Format: "text"}))

	app := &cli.Command{
		Name:  "migrate",
		Usage: "Manage the setlister database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Usage:    "Postgres connection string",
				Sources:  cli.EnvVars("DATABASE_URL"),
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply every pending migration",
				Action: withMigrator(func(_ context.Context, _ *cli.Command, mg *store.Migrator) error {
					if err := mg.Up(); err != nil {
						return err
					}
					log.Info().Msg("migrations applied")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back every migration",
				Action: withMigrator(func(_ context.Context, _ *cli.Command, mg *store.Migrator) error {
					if err := mg.Down(); err != nil {
						return err
					}
					log.Info().Msg("migrations rolled back")
					return nil
				}),
			},
			{
				Name:  "version",
				Usage: "Print the applied schema version",
				Action: withMigrator(func(_ context.Context, _ *cli.Command, mg *store.Migrator) error {
					version, dirty, err := mg.Version()
					if err != nil {
						return err
					}
					fmt.Printf("version %d (dirty: %t)\n", version, dirty)
					return nil
				}),
			},
			{
				Name:      "force",
				Usage:     "Set the schema version without running migrations",
				ArgsUsage: "VERSION",
				Action: withMigrator(func(_ context.Context, cmd *cli.Command, mg *store.Migrator) error {
					version, err := strconv.Atoi(cmd.Args().First())
					if err != nil || version <= 0 {
						return fmt.Errorf("force needs a positive version, got %q", cmd.Args().First())
					}
					if err := mg.Force(version); err != nil {
						return err
					}
					log.Info().Int("version", version).Msg("schema version forced")
					return nil
				}),
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
}

func withMigrator(fn func(context.Context, *cli.Command, *store.Migrator) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		db, err := sql.Open("postgres", cmd.String("database-url"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		mg, err := store.NewMigrator(db)
		if err != nil {
			return err
		}
		return fn(ctx, cmd, mg)
	}
}
