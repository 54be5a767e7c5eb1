package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/streamvault/cmd/app/commands"
	"github.com/allisson/streamvault/internal/app"
	"github.com/allisson/streamvault/internal/config"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a new Master Key for envelope encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "id",
					Aliases: []string{"i"},
					Value:   "",
					Usage:   "Master key ID (e.g., prod-master-key-2026)",
				},
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault)",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					cryptoService.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("id"),
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "create-server-key",
			Usage: "Generate a P-256 server key pair for legacy root-secret envelopes",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateServerKey(commands.DefaultIO().Writer)
			},
		},
	}
}
