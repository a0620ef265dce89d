package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows defaults merged with the config file.

Examples:
  locus config show
  locus -c locus.toml config show`,
				Action: runConfigShowCmd,
			},
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Checks a config file for syntax errors and invalid values.

Examples:
  locus config validate
  locus -c .locus/locus.toml config validate`,
				Action: runConfigValidateCmd,
			},
		},
	}
}

func configOptions(c *cli.Context) []config.LoadOption {
	if path := c.String("config"); path != "" {
		return []config.LoadOption{config.WithPath(path)}
	}
	return nil
}

func runConfigShowCmd(c *cli.Context) error {
	result, err := config.LoadConfig(configOptions(c)...)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(result.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	w := c.App.Writer
	if result.Source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintf(w, "# Default configuration (no config file found)\n\n")
	}
	fmt.Fprint(w, string(data))
	return nil
}

func runConfigValidateCmd(c *cli.Context) error {
	w := c.App.Writer
	result, err := config.LoadConfig(configOptions(c)...)
	if err != nil {
		fmt.Fprintln(w, color.RedString("Configuration validation failed:"))
		fmt.Fprintf(w, "  - %s\n", err)
		return err
	}

	if result.Source != "" {
		fmt.Fprintln(w, color.GreenString("Configuration valid: %s", result.Source))
	} else {
		fmt.Fprintln(w, color.YellowString("No config file found. Default configuration is valid."))
	}
	return nil
}
