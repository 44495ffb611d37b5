package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/urbanalert/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "urbanalert",
		Usage:   "Conversational assistant for reporting urban environmental hazards",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./urbanalert.toml, $HOME/.urbanalert.toml)",
			},
		},
		Commands: []*cli.Command{
			cmd.ChatCommand(),
			cmd.DashboardCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
