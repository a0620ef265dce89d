package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/internal/output"
	"github.com/panbanda/locus/internal/service/analysis"
	"github.com/panbanda/locus/pkg/similarity"
)

var analyzeSimFlagNames = similarityFlags{
	strategy:      "sim-strategy",
	threshold:     "sim-threshold",
	maxCandidates: "sim-max-candidates",
	includeInit:   "sim-include-init",
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"all"},
		Usage:     "Inventory Python files, optionally with a similarity pass",
		ArgsUsage: "[path...]",
		Flags: append(scanFlags(),
			&cli.BoolFlag{
				Name:  "similarity",
				Usage: "Run duplicate detection over the same files",
			},
			&cli.StringFlag{
				Name:  "sim-strategy",
				Value: string(similarity.StrategyExact),
				Usage: "Grouping strategy for --similarity: exact or ast",
			},
			&cli.Float64Flag{
				Name:  "sim-threshold",
				Value: 1.0,
				Usage: "Similarity threshold in [0, 1], recorded in the result",
			},
			&cli.IntFlag{
				Name:  "sim-max-candidates",
				Usage: "Candidate limit per unit, recorded in the result",
			},
			&cli.StringFlag{
				Name:  "sim-output",
				Usage: "Also write the similarity JSON to this path",
			},
			&cli.BoolFlag{
				Name:  "sim-include-init",
				Usage: "Include __init__ methods in the similarity pass",
			},
			&cli.BoolFlag{
				Name:  "no-sim-print-members",
				Usage: "Print cluster headers only",
			},
		),
		Action: runAnalyzeCmd,
	}
}

// analyzeData is the JSON and TOON shape of analyze output.
type analyzeData struct {
	Files      any                `json:"files"`
	Similarity *similarity.Result `json:"similarity,omitempty"`
}

func runAnalyzeCmd(c *cli.Context) error {
	env, err := loadEnv(c)
	if err != nil {
		return err
	}

	svc := env.service()
	ws, err := env.loadWorkspace(c, svc)
	if err != nil {
		return err
	}

	stats, err := svc.Inventory(c.Context, ws)
	if err != nil {
		env.warnf("Some files could not be inventoried: %v", err)
	}
	files := analysis.FileTable(stats)
	report := &output.Report{
		Title:    "Locus Analysis",
		Sections: []output.Renderable{files},
	}
	data := analyzeData{Files: files.RenderData()}

	if c.Bool("similarity") {
		// The similarity pass is best effort; the inventory is still printed.
		res, err := runSimilarityPass(c, env, svc, ws)
		if err != nil {
			env.warnf("Similarity analysis failed: %v", err)
		} else {
			summary := similarity.NewSummary(res)
			summary.ShowMembers = env.cfg.Similarity.PrintMembers && !c.Bool("no-sim-print-members")
			report.Sections = append(report.Sections, summary)
			data.Similarity = res
		}
	}
	report.Data = data

	formatter, err := env.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report)
}

func runSimilarityPass(c *cli.Context, env *runEnv, svc *analysis.Service, ws *analysis.Workspace) (*similarity.Result, error) {
	cfg, err := resolveSimilarity(c, env.cfg.Similarity, analyzeSimFlagNames)
	if err != nil {
		return nil, err
	}
	res, err := svc.FindDuplicates(ws, cfg)
	if err != nil {
		return nil, err
	}
	env.writeResultJSON(res, c.String("sim-output"))
	return res, nil
}
