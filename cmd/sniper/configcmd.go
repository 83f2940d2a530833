package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"solana_sniper/internal/config"
)

const defaultConfigFile = "sniper.yaml"

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect and move settings",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective settings",
				Action: func(c *cli.Context) error {
					s, err := config.Load()
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					fmt.Print(s.Summary())
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check the settings and exit non-zero when they are unusable",
				Action: func(c *cli.Context) error {
					if _, err := config.Load(); err != nil {
						return cli.Exit(err.Error(), 2)
					}
					fmt.Println("configuration OK")
					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "write the effective settings to a file, secrets excluded",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return cli.Exit("export needs a target file", 2)
					}
					s, err := config.Load()
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					if err := config.Export(s, path); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Printf("settings exported to %s\n", path)
					return nil
				},
			},
			{
				Name:      "import",
				Usage:     "validate an exported file and install it as the settings file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Usage: "where to install it, defaults to CONFIG_FILE or " + defaultConfigFile},
				},
				Action: func(c *cli.Context) error {
					path := c.Args().First()
					if path == "" {
						return cli.Exit("import needs a source file", 2)
					}
					current, err := config.Load()
					if err != nil {
						d := config.Defaults()
						current = &d
					}
					imported, err := config.Import(path, current)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					target := c.String("out")
					if target == "" {
						target = current.Runtime.ConfigFile
					}
					if target == "" {
						target = defaultConfigFile
					}
					if err := config.Export(imported, target); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Printf("settings imported into %s, restart or let the watcher reload them\n", target)
					return nil
				},
			},
		},
	}
}
