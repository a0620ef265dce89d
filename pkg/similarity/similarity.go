// Package similarity finds duplicate Python functions.
//
// Every function and method is extracted as a CodeUnit, reduced to a key
// by a Strategy, and units sharing a key are grouped into clusters with
// pairwise matches. Exact compares whitespace-normalized text; ASTCanonical
// compares syntax trees with names, literals and docstrings erased.
package similarity

import (
	"fmt"

	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/parser"
	"github.com/panbanda/locus/pkg/source"
	"github.com/panbanda/locus/pkg/stats"
)

// Config controls a similarity run.
type Config struct {
	Strategy StrategyName
	// Threshold and MaxCandidates are recorded but unused: both strategies
	// only report exact key equality.
	Threshold     float64
	MaxCandidates int
	IncludeInit   bool
	SkipTrivial   bool
	MinNodes      int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:  StrategyExact,
		Threshold: 1.0,
	}
}

// Analyzer runs duplicate detection.
type Analyzer struct {
	config Config
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithStrategy selects the grouping strategy.
func WithStrategy(name StrategyName) Option {
	return func(a *Analyzer) {
		a.config.Strategy = name
	}
}

// WithThreshold sets the recorded similarity threshold.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.config.Threshold = threshold
	}
}

// WithIncludeInit keeps __init__ methods, which are excluded by default.
func WithIncludeInit(include bool) Option {
	return func(a *Analyzer) {
		a.config.IncludeInit = include
	}
}

// WithSkipTrivial drops accessor and protocol methods before grouping.
func WithSkipTrivial(skip bool) Option {
	return func(a *Analyzer) {
		a.config.SkipTrivial = skip
	}
}

// WithMinNodes drops units whose canonical tree is smaller than n nodes.
func WithMinNodes(n int) Option {
	return func(a *Analyzer) {
		a.config.MinNodes = n
	}
}

// WithConfig applies file configuration. An empty strategy leaves the
// current strategy in place.
func WithConfig(cfg config.SimilarityConfig) Option {
	return func(a *Analyzer) {
		if cfg.Strategy != "" {
			a.config.Strategy = StrategyName(cfg.Strategy)
		}
		a.config.Threshold = cfg.Threshold
		a.config.MaxCandidates = cfg.MaxCandidates
		a.config.IncludeInit = cfg.IncludeInit
		a.config.SkipTrivial = cfg.SkipTrivial
		a.config.MinNodes = cfg.MinNodes
	}
}

// New creates an Analyzer with default config.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config {
	return a.config
}

// Run analyzes files with cfg.
func Run(files []source.File, cfg Config) (*Result, error) {
	return (&Analyzer{config: cfg}).Analyze(files)
}

// Analyze extracts units from files and groups duplicates. Files must be
// supplied in a stable order for IDs and cluster numbering to be stable.
func (a *Analyzer) Analyze(files []source.File) (*Result, error) {
	psr := parser.New()
	defer psr.Close()

	units, err := NewExtractor(psr).Extract(files)
	if err != nil {
		return nil, fmt.Errorf("failed to extract code units: %w", err)
	}

	canon := NewCanonicalizer(psr)
	kept, filtered := a.filter(units, canon)

	strategy := StrategyFor(a.config.Strategy, canon)
	clusterer := NewClusterer(strategy)
	clusterer.Prepare(kept)
	clusters, matches := clusterer.FindClusters()

	sizes := make([]int, len(clusters))
	for i, c := range clusters {
		sizes[i] = c.Size()
	}

	requested := a.config.Strategy
	if requested == "" {
		requested = StrategyExact
	}

	return &Result{
		Units:    kept,
		Clusters: clusters,
		Matches:  matches,
		Meta: map[string]any{
			MetaStrategy:          string(strategy.Name()),
			MetaRequestedStrategy: string(requested),
			MetaThreshold:         a.config.Threshold,
			MetaIncludeInit:       a.config.IncludeInit,
			MetaUnits:             len(kept),
			MetaFilteredUnits:     filtered,
			MetaDroppedUnits:      len(clusterer.Dropped()),
			MetaClusterSize:       stats.Summarize(stats.Ints(sizes)),
		},
	}, nil
}

// filter applies the unit filters and returns the survivors and the
// number removed.
func (a *Analyzer) filter(units []CodeUnit, canon *Canonicalizer) ([]CodeUnit, int) {
	kept := make([]CodeUnit, 0, len(units))
	for _, u := range units {
		if !a.config.IncludeInit && u.IsInit() {
			continue
		}
		if a.config.SkipTrivial && IsTrivialQualname(u.Qualname) {
			continue
		}
		if a.config.MinNodes > 0 && BelowMinNodes(canon.Canonicalize(u.Source).Nodes, a.config.MinNodes) {
			continue
		}
		kept = append(kept, u)
	}
	return kept, len(units) - len(kept)
}
