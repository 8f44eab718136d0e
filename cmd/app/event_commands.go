package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/marketsync/cmd/app/commands"
	"github.com/allisson/marketsync/internal/app"
	"github.com/allisson/marketsync/internal/config"
	eventsDomain "github.com/allisson/marketsync/internal/events/domain"
)

func getEventCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "poll-events",
			Usage: "Fetch and handle one page of every marketplace event stream",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				eventUseCase, err := container.EventUseCase()
				if err != nil {
					return err
				}

				return commands.RunPollEvents(
					ctx,
					eventUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "retry-event",
			Usage: "Re-run the handler of a stored, unprocessed event",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Required: true,
					Usage:    "Marketplace event id",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				eventUseCase, err := container.EventUseCase()
				if err != nil {
					return err
				}

				return commands.RunRetryEvent(
					ctx,
					eventUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "list-events",
			Usage: "List stored events, newest first",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Usage:   "Only events of this type",
				},
				&cli.StringFlag{
					Name:  "processed",
					Usage: "Only processed ('true') or unprocessed ('false') events",
				},
				&cli.IntFlag{
					Name:  "page",
					Value: 1,
					Usage: "Page number",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: eventsDomain.DefaultPageLimit,
					Usage: "Events per page",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				filter := eventsDomain.ListFilter{
					EventType: cmd.String("type"),
					Page:      int(cmd.Int("page")),
					Limit:     int(cmd.Int("limit")),
				}
				switch cmd.String("processed") {
				case "":
				case "true":
					processed := true
					filter.Processed = &processed
				case "false":
					processed := false
					filter.Processed = &processed
				default:
					return fmt.Errorf("invalid processed value: %s (valid options: true, false)", cmd.String("processed"))
				}

				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				eventUseCase, err := container.EventUseCase()
				if err != nil {
					return err
				}

				return commands.RunListEvents(
					ctx,
					eventUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					filter,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "clean-events",
			Usage: "Delete processed events older than specified days",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Usage:   "Delete processed events older than this many days (default EVENTS_RETENTION_DAYS)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "Show how many events would be deleted without deleting",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				days := cfg.EventsRetentionDays
				if cmd.IsSet("days") {
					days = int(cmd.Int("days"))
				}

				eventUseCase, err := container.EventUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanEvents(
					ctx,
					eventUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					days,
					cmd.Bool("dry-run"),
					cmd.String("format"),
				)
			},
		},
	}
}
