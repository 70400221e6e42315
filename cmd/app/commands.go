package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nemory/userkeys/cmd/app/commands"
	"github.com/nemory/userkeys/internal/app"
	"github.com/nemory/userkeys/internal/config"
)

var (
	userFlag = &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Required: true,
		Usage:    "User ID",
	}
	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
)

// newContainer loads and validates configuration and builds a container for a command.
func newContainer() (*app.Container, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.NewContainer(cfg), nil
}

func getCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer commands.CloseContainer(container, container.Logger())

				return commands.RunServer(ctx, container, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "show-user-key",
			Usage: "Show the key version of a user",
			Flags: []cli.Flag{userFlag, formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				useCase, err := container.UserKeyUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize user key use case: %w", err)
				}

				return commands.RunShowUserKey(
					ctx,
					useCase,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("user"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "rotate-user-key",
			Usage: "Rotate a user's data encryption key",
			Flags: []cli.Flag{userFlag, formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				useCase, err := container.UserKeyUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize user key use case: %w", err)
				}

				return commands.RunRotateUserKey(
					ctx,
					useCase,
					logger,
					commands.DefaultIO().Writer,
					cmd.String("user"),
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "encrypt",
			Usage: "Encrypt stdin for a user and print the envelope",
			Flags: []cli.Flag{
				userFlag,
				&cli.StringFlag{
					Name:     "purpose",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Purpose label bound into the envelope (e.g., entry.content)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				useCase, err := container.EnvelopeUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize envelope use case: %w", err)
				}

				return commands.RunEncrypt(
					ctx,
					useCase,
					logger,
					commands.DefaultIO(),
					cmd.String("user"),
					cmd.String("purpose"),
				)
			},
		},
		{
			Name:  "decrypt",
			Usage: "Decrypt an envelope read from stdin as a user",
			Flags: []cli.Flag{userFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container, err := newContainer()
				if err != nil {
					return err
				}
				logger := container.Logger()
				defer commands.CloseContainer(container, logger)

				useCase, err := container.EnvelopeUseCase()
				if err != nil {
					return fmt.Errorf("failed to initialize envelope use case: %w", err)
				}

				return commands.RunDecrypt(ctx, useCase, logger, commands.DefaultIO(), cmd.String("user"))
			},
		},
	}
}
