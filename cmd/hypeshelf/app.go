package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/sumire/hypeshelf/internal/config"
	"github.com/sumire/hypeshelf/internal/database"
	"github.com/sumire/hypeshelf/internal/domain"
	"github.com/sumire/hypeshelf/internal/logger"
	"github.com/sumire/hypeshelf/internal/repository"
	"github.com/sumire/hypeshelf/internal/service"
)

// runner holds the state shared by every command action.
type runner struct {
	cfg config.Config
	out io.Writer
}

func newApp(out io.Writer) *cli.Command {
	r := &runner{out: out}

	return &cli.Command{
		Name:   "hypeshelf",
		Usage:  "Share and curate recommendations",
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: r.serve,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "Apply all pending migrations",
						Action: r.migrateUp,
					},
					{
						Name:  "down",
						Usage: "Roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Usage: "Number of migrations to roll back",
								Value: 1,
							},
						},
						Action: r.migrateDown,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load demo users and recommendations",
				Action: r.seed,
			},
			{
				Name:  "users",
				Usage: "Administer local users",
				Commands: []*cli.Command{
					{
						Name:  "set-role",
						Usage: "Change a user's role",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "external-id",
								Usage:    "Identity subject of the user, e.g. google:1234",
								Required: true,
							},
							&cli.StringFlag{
								Name:     "role",
								Usage:    "admin or user",
								Required: true,
							},
						},
						Action: r.setRole,
					},
				},
			},
		},
	}
}

func (r *runner) setup(ctx context.Context, _ *cli.Command) (context.Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return ctx, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetupDefault(nil, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return ctx, fmt.Errorf("setup logger: %w", err)
	}
	r.cfg = cfg
	return ctx, nil
}

func (r *runner) migrateUp(_ context.Context, _ *cli.Command) error {
	return database.RunMigrations(r.cfg.Database.URL)
}

func (r *runner) migrateDown(_ context.Context, cmd *cli.Command) error {
	steps := int(cmd.Int("steps"))
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	return database.RollbackMigrations(r.cfg.Database.URL, steps)
}

func (r *runner) seed(ctx context.Context, _ *cli.Command) error {
	db, err := r.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := service.NewSeeder(
		repository.NewUserRepository(db),
		repository.NewRecommendationRepository(db),
		repository.NewTransactor(db),
		service.DefaultSeedAccounts(),
		nil,
	)
	result, err := seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return r.writeJSON(result)
}

func (r *runner) setRole(ctx context.Context, cmd *cli.Command) error {
	role, err := domain.ParseRole(cmd.String("role"))
	if err != nil {
		return err
	}

	db, err := r.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	users := service.NewUserService(repository.NewUserRepository(db), nil)
	user, err := users.SetRole(ctx, cmd.String("external-id"), role)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return r.writeJSON(user)
}

func (r *runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
