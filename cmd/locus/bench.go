package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/internal/bench"
	"github.com/panbanda/locus/internal/output"
)

const defaultCasesDir = "tests/benchmarks/cases"

func benchCmd() *cli.Command {
	return &cli.Command{
		Name:      "bench",
		Usage:     "Score strategies against labeled duplicate cases",
		ArgsUsage: "[cases-dir]",
		Description: `Each case is a directory named case-* holding Python files and a
meta.yaml that labels functions and the expected relation between pairs
of them (duplicate, similar, or negative).

Exits non-zero when any case fails.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "strategy",
				Value: "all",
				Usage: "Strategy to evaluate: exact, ast, or all",
			},
			&cli.StringFlag{
				Name:  "json-out",
				Usage: "Write the full report as JSON to this path",
			},
			&cli.BoolFlag{
				Name:  "include-init",
				Usage: "Include __init__ methods",
			},
		},
		Action: runBenchCmd,
	}
}

func runBenchCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	strategies, err := bench.StrategiesFor(c.String("strategy"))
	if err != nil {
		return err
	}
	dir := defaultCasesDir
	if c.Args().Len() > 0 {
		dir = c.Args().First()
	}

	runner := bench.NewRunner(
		bench.WithService(env.service()),
		bench.WithIncludeInit(c.Bool("include-init")),
	)

	// Text output streams one line per case; other formats only get the
	// final table.
	stream := env.format == output.FormatText
	var current string
	report, err := runner.Run(c.Context, dir, strategies, func(r bench.CaseResult) {
		if !stream {
			return
		}
		if string(r.Strategy) != current {
			current = string(r.Strategy)
			fmt.Fprintln(env.stdout, strings.Repeat("=", 60))
			fmt.Fprintln(env.stdout, color.New(color.Bold).Sprintf("Strategy: %s", current))
		}
		fmt.Fprintf(env.stdout, "%s %s: %s\n", output.StatusColor(string(r.Status), "["+string(r.Status)+"]"), r.Case, r.Message)
		for _, f := range r.Failures {
			fmt.Fprintf(env.stdout, "    - %s\n", f)
		}
	})
	if err != nil {
		return err
	}

	if stream {
		for _, s := range strategies {
			fmt.Fprintln(env.stdout, strings.Repeat("-", 60))
			fmt.Fprintf(env.stdout, "[%s] %s\n", s, report[s].Metrics.SummaryLine())
		}
		fmt.Fprintln(env.stdout)
	}

	if path := c.String("json-out"); path != "" {
		if err := report.WriteJSON(path); err != nil {
			env.warnf("Failed to write benchmark JSON: %v", err)
		} else {
			env.infof("Wrote benchmark JSON to %s", path)
		}
	}

	formatter, err := env.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(report.Table(strategies)); err != nil {
		return err
	}

	if report.Failed() {
		failed := 0
		for _, sr := range report {
			failed += sr.Metrics.CasesFail
		}
		return fmt.Errorf("%d benchmark case(s) failed", failed)
	}
	return nil
}
