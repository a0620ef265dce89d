package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start an MCP server exposing duplicate detection over stdio",
		Description: `Starts a Model Context Protocol server on stdin/stdout so an assistant
can look for duplicated Python functions before writing new ones.

Example client config:
  {
    "mcpServers": {
      "locus": {
        "command": "locus",
        "args": ["mcp"]
      }
    }
  }

Tools:
  - find_duplicates   Group duplicate functions (exact or ast)
  - list_files        Python files with line and function counts`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, mcpserver.WithService(env.service()))
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
