package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/marketsync/cmd/app/commands"
	"github.com/allisson/marketsync/internal/app"
	"github.com/allisson/marketsync/internal/config"
)

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "sync",
			Usage: "Run one sync between the marketplace and the database",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "strategy",
					Aliases:  []string{"s"},
					Required: true,
					Usage:    "Sync direction: 'allegro-to-db', 'db-to-allegro' or 'bidirectional'",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				syncUseCase, err := container.SyncUseCase()
				if err != nil {
					return err
				}

				return commands.RunSync(
					ctx,
					syncUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("strategy"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-conflicts",
			Usage: "List conflicts waiting for manual review",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of conflicts to show",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				syncUseCase, err := container.SyncUseCase()
				if err != nil {
					return err
				}

				return commands.RunListConflicts(
					ctx,
					syncUseCase,
					commands.DefaultIO().Writer,
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "sync-producers",
			Usage: "Store every producer the marketplace lists for an account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Required: true,
					Usage:    "Owner of the account",
				},
				&cli.StringFlag{
					Name:     "account-id",
					Required: true,
					Usage:    "Marketplace account to read producers from",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				producerUseCase, err := container.ProducerUseCase()
				if err != nil {
					return err
				}

				return commands.RunSyncProducers(
					ctx,
					producerUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
					cmd.String("account-id"),
					cmd.String("format"),
				)
			},
		},
	}
}
