package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/locus/internal/output"
	"github.com/panbanda/locus/internal/progress"
	"github.com/panbanda/locus/internal/service/analysis"
	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/similarity"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// runEnv is the per-invocation state shared by commands.
type runEnv struct {
	cfg     *config.Config
	format  output.Format
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
}

// loadEnv loads the config named by --config (or found in the working
// directory) and merges the global flags over it.
func loadEnv(c *cli.Context) (*runEnv, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	res, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	format := res.Config.Output.Format
	if c.IsSet("format") || format == "" {
		format = c.String("format")
	}
	if !res.Config.Output.Color {
		color.NoColor = true
	}

	env := &runEnv{
		cfg:     res.Config,
		format:  output.ParseFormat(format),
		verbose: c.Bool("verbose") || res.Config.Output.Verbose,
		stdout:  c.App.Writer,
		stderr:  c.App.ErrWriter,
	}
	if res.Source != "" {
		env.infof("Using config %s", res.Source)
	}
	return env, nil
}

func (e *runEnv) service() *analysis.Service {
	return analysis.New(analysis.WithConfig(e.cfg))
}

// formatter writes to --output when set, otherwise to the app's writer.
func (e *runEnv) formatter(c *cli.Context) (*output.Formatter, error) {
	if path := c.String("output"); path != "" {
		return output.NewFormatter(e.format, path, false)
	}
	return output.NewWriterFormatter(e.format, e.stdout, !color.NoColor), nil
}

func (e *runEnv) warnf(format string, args ...any) {
	fmt.Fprintln(e.stderr, color.YellowString(format, args...))
}

func (e *runEnv) infof(format string, args ...any) {
	if e.verbose {
		fmt.Fprintln(e.stderr, color.CyanString(format, args...))
	}
}

// showProgress reports whether stderr is an interactive terminal.
func (e *runEnv) showProgress() bool {
	f, ok := e.stderr.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// loadWorkspace scans the command's targets and reads every selected file
// behind a progress bar. Unreadable files are reported and skipped.
func (e *runEnv) loadWorkspace(c *cli.Context, svc *analysis.Service) (*analysis.Workspace, error) {
	sel, err := svc.Scan(getPaths(c), analysis.ScanOptions{
		Include: c.StringSlice("include"),
		Exclude: c.StringSlice("exclude"),
	})
	if err != nil {
		return nil, err
	}
	if sel.Oversized > 0 {
		e.infof("Skipped %d files larger than %d bytes", sel.Oversized, e.cfg.Exclude.MaxFileSize)
	}
	if len(sel.Files) == 0 {
		e.warnf("No Python files found")
		return &analysis.Workspace{Root: sel.Root}, nil
	}

	tracker := progress.NewTracker("Reading files...", len(sel.Files),
		progress.WithWriter(e.stderr),
		progress.WithVisible(e.showProgress()),
	)
	ws := svc.Read(c.Context, sel, analysis.ReadOptions{OnProgress: tracker.Tick})
	tracker.FinishSuccess()

	if ws.Errors != nil {
		e.warnf("%d files could not be read", len(ws.Errors.Errors))
		for _, fe := range ws.Errors.Errors {
			e.infof("  %v", fe)
		}
	}
	return ws, nil
}

// similarityFlags names the flags that override similarity settings for a
// command. Empty names have no flag.
type similarityFlags struct {
	strategy      string
	threshold     string
	maxCandidates string
	includeInit   string
	skipTrivial   string
	minNodes      string
}

// resolveSimilarity merges flags over the config file. A flag wins when
// set explicitly; otherwise a config value wins; otherwise the flag's
// default applies.
func resolveSimilarity(c *cli.Context, file config.SimilarityConfig, flags similarityFlags) (similarity.Config, error) {
	cfg := similarity.New(similarity.WithConfig(file)).Config()

	strategy := file.Strategy
	if c.IsSet(flags.strategy) || strategy == "" {
		strategy = c.String(flags.strategy)
	}
	name, ok := similarity.ParseStrategyName(strategy)
	if !ok {
		return cfg, fmt.Errorf("unknown strategy %q (want exact or ast)", strategy)
	}
	cfg.Strategy = name

	if flags.threshold != "" && c.IsSet(flags.threshold) {
		t := c.Float64(flags.threshold)
		if t < 0 || t > 1 {
			return cfg, fmt.Errorf("--%s must be between 0 and 1 (got %v)", flags.threshold, t)
		}
		cfg.Threshold = t
	}
	if flags.maxCandidates != "" && c.IsSet(flags.maxCandidates) {
		cfg.MaxCandidates = c.Int(flags.maxCandidates)
	}
	if flags.includeInit != "" && c.IsSet(flags.includeInit) {
		cfg.IncludeInit = c.Bool(flags.includeInit)
	}
	if flags.skipTrivial != "" && c.IsSet(flags.skipTrivial) {
		cfg.SkipTrivial = c.Bool(flags.skipTrivial)
	}
	if flags.minNodes != "" && c.IsSet(flags.minNodes) {
		cfg.MinNodes = c.Int(flags.minNodes)
	}
	return cfg, nil
}

// writeResultJSON writes res to path. Failure is a warning.
func (e *runEnv) writeResultJSON(res *similarity.Result, path string) {
	if path == "" {
		return
	}
	if err := res.WriteJSONFile(path); err != nil {
		e.warnf("Failed to write similarity JSON: %v", err)
		return
	}
	e.infof("Wrote similarity JSON to %s", path)
}
