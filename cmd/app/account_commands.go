package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/marketsync/cmd/app/commands"
	"github.com/allisson/marketsync/internal/app"
	"github.com/allisson/marketsync/internal/config"
)

func getAccountCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-account",
			Usage: "Store a marketplace account with an encrypted access token",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "user-id",
					Required: true,
					Usage:    "Owner of the account",
				},
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Account display name",
				},
				&cli.StringFlag{
					Name:     "token",
					Required: true,
					Sources:  cli.EnvVars("MARKETPLACE_ACCESS_TOKEN"),
					Usage:    "Marketplace access token",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				accountUseCase, err := container.AccountUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateAccount(
					ctx,
					accountUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("user-id"),
					cmd.String("name"),
					cmd.String("token"),
					cmd.String("format"),
				)
			},
		},
	}
}
