package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/pkg/similarity"
)

var simFlagNames = similarityFlags{
	strategy:      "strategy",
	threshold:     "threshold",
	maxCandidates: "max-candidates",
	includeInit:   "include-init",
	skipTrivial:   "skip-trivial",
	minNodes:      "min-nodes",
}

func scanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Only analyze files matching these gitignore-style patterns",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Skip files matching these gitignore-style patterns",
		},
	}
}

func simCmd() *cli.Command {
	return &cli.Command{
		Name:      "sim",
		Aliases:   []string{"dup"},
		Usage:     "Group duplicate functions and methods",
		ArgsUsage: "[path...]",
		Flags: append(scanFlags(),
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Value:   string(similarity.StrategyAST),
				Usage:   "Grouping strategy: exact or ast",
			},
			&cli.Float64Flag{
				Name:    "threshold",
				Aliases: []string{"t"},
				Value:   1.0,
				Usage:   "Similarity threshold in [0, 1], recorded in the result",
			},
			&cli.IntFlag{
				Name:  "max-candidates",
				Usage: "Candidate limit per unit, recorded in the result",
			},
			&cli.StringFlag{
				Name:    "json-out",
				Aliases: []string{"j"},
				Usage:   "Also write the result JSON to this path",
			},
			&cli.BoolFlag{
				Name:  "include-init",
				Usage: "Include __init__ methods",
			},
			&cli.BoolFlag{
				Name:  "skip-trivial",
				Usage: "Skip dunder methods and short accessors",
			},
			&cli.IntFlag{
				Name:  "min-nodes",
				Usage: "Skip functions with fewer canonical syntax tree nodes",
			},
			&cli.BoolFlag{
				Name:  "no-print-members",
				Usage: "Print cluster headers only",
			},
		),
		Action: runSimCmd,
	}
}

func runSimCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	simCfg, err := resolveSimilarity(c, env.cfg.Similarity, simFlagNames)
	if err != nil {
		return err
	}

	svc := env.service()
	ws, err := env.loadWorkspace(c, svc)
	if err != nil {
		return err
	}

	res, err := svc.FindDuplicates(ws, simCfg)
	if err != nil {
		return err
	}
	env.writeResultJSON(res, c.String("json-out"))

	summary := similarity.NewSummary(res)
	summary.ShowMembers = env.cfg.Similarity.PrintMembers && !c.Bool("no-print-members")

	formatter, err := env.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(summary)
}
