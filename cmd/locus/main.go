package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "locus",
		Usage:    "Find duplicate and near-duplicate Python functions",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `Locus extracts every function and method from a Python tree and groups
the ones that are copies of each other.

Strategies:
  exact   identical source after whitespace normalization
  ast     identical syntax tree with names, literals and docstrings erased`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"LOCUS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print config source, skipped files and read errors",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Write <prefix>.cpu.pprof and <prefix>.mem.pprof profiles",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-color") {
				color.NoColor = true
			}
			if prefix := c.String("pprof"); prefix != "" {
				p, err := startProfiler(prefix)
				if err != nil {
					return err
				}
				c.App.Metadata["profiler"] = p
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if p, ok := c.App.Metadata["profiler"].(*profiler); ok {
				return p.stop(c.App.ErrWriter)
			}
			return nil
		},
		Commands: []*cli.Command{
			simCmd(),
			analyzeCmd(),
			benchCmd(),
			mcpCmd(),
			configCmd(),
		},
	}
}
