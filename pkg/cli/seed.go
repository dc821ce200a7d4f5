package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sabrinaskaa/chatbot-binara/pkg/repository"
	"github.com/sabrinaskaa/chatbot-binara/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func seedCommand() *cli.Command {
	var cfg config

	flags := append(loggingFlags(&cfg), gatewayFlags(&cfg)...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Write seed records into the configured database",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			if cfg.db == "" || cfg.db == "memory" {
				return goerr.New("db is required; the in-memory gateway is seeded on start")
			}

			seed, err := cfg.loadSeed()
			if err != nil {
				return err
			}

			repo, err := repository.New(ctx, cfg.db)
			if err != nil {
				return goerr.Wrap(err, "failed to open repository")
			}
			defer closeRepository(ctx, repo)

			if err := repo.Seed(ctx, seed); err != nil {
				return goerr.Wrap(err, "failed to seed repository")
			}

			logging.From(ctx).Info("seeded",
				"kosts", len(seed.Kosts),
				"rooms", len(seed.Rooms),
				"tenants", len(seed.Tenants),
				"payments", len(seed.Payments))
			return nil
		},
	}
}
