package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"solana_sniper/internal/config"
	"solana_sniper/pkg/logger"
)

const serviceName = "solana-sniper"

func main() {
	app := &cli.App{
		Name:  "sniper",
		Usage: "discover, vet, buy and exit new Solana tokens",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "settings file (yaml or json), environment variables win",
				EnvVars: []string{"CONFIG_FILE"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "extra .env file loaded before the default one",
			},
		},
		Before: func(c *cli.Context) error {
			if f := c.String("env-file"); f != "" {
				if err := godotenv.Load(f); err != nil {
					return cli.Exit(fmt.Sprintf("load %s: %v", f, err), 2)
				}
			}
			if f := c.String("config"); f != "" {
				return os.Setenv("CONFIG_FILE", f)
			}
			return nil
		},
		Commands: []*cli.Command{
			startCommand(),
			scanCommand(),
			testCommand(),
			configCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRuntime reads the settings and builds the process logger from them.
func loadRuntime() (*config.Settings, *zap.Logger, error) {
	s, err := config.Load()
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	log, err := logger.New(logger.Options{
		Service:  serviceName,
		Level:    s.Runtime.LogLevel,
		Format:   s.Runtime.LogFormat,
		FilePath: s.Runtime.LogFilePath,
	})
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	return s, log, nil
}
