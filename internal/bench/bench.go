// Package bench evaluates duplicate detection against labelled fixture
// cases. Each case directory holds Python files and a meta.yaml naming
// function pairs that must, or must not, land in the same cluster.
package bench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/locus/internal/service/analysis"
	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/similarity"
)

// MetaFile is the descriptor file name inside a case directory.
const MetaFile = "meta.yaml"

// Relation states what a pair is expected to be.
type Relation string

const (
	RelationDuplicate Relation = "duplicate"
	RelationSimilar   Relation = "similar"
	RelationNegative  Relation = "negative"
)

// Positive reports whether the pair should share a cluster.
func (r Relation) Positive() bool {
	return r == RelationDuplicate || r == RelationSimilar
}

// Member names one function in a case.
type Member struct {
	Label    string `yaml:"label"`
	File     string `yaml:"file"`
	Qualname string `yaml:"qualname"`
}

// Pair is an expectation between two member labels.
type Pair struct {
	Left     string   `yaml:"left"`
	Right    string   `yaml:"right"`
	Relation Relation `yaml:"relation"`
}

// Expected is the strategy a case was written for. "any" applies to all.
type Expected struct {
	Strategy  string  `yaml:"strategy"`
	Threshold float64 `yaml:"threshold"`
}

// Case is a parsed meta.yaml.
type Case struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Expected Expected `yaml:"expected"`
	Members  []Member `yaml:"members"`
	Pairs    []Pair   `yaml:"pairs"`

	// Root is the case directory.
	Root string `yaml:"-"`

	byLabel map[string]Member
}

// LoadCase reads a case descriptor and fills defaults: the directory
// name as ID, type T1, strategy "any", threshold 1.0, relation "similar".
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &Case{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Type == "" {
		c.Type = "T1"
	}
	if c.Expected.Strategy == "" {
		c.Expected.Strategy = "any"
	}
	if c.Expected.Threshold == 0 {
		c.Expected.Threshold = 1.0
	}

	c.Root = filepath.Dir(path)
	if c.ID == "" {
		c.ID = filepath.Base(c.Root)
	}

	c.byLabel = make(map[string]Member, len(c.Members))
	for _, m := range c.Members {
		c.byLabel[m.Label] = m
	}
	for i := range c.Pairs {
		p := &c.Pairs[i]
		if p.Relation == "" {
			p.Relation = RelationSimilar
		}
		for _, label := range []string{p.Left, p.Right} {
			if _, ok := c.byLabel[label]; !ok {
				return nil, fmt.Errorf("%s: pair references unknown member %q", c.ID, label)
			}
		}
	}
	return c, nil
}

// Applies reports whether the case was written for strategy.
func (c *Case) Applies(strategy similarity.StrategyName) bool {
	return c.Expected.Strategy == "any" || c.Expected.Strategy == string(strategy)
}

// DiscoverCases returns the meta.yaml paths of every case-* directory
// under dir, sorted.
func DiscoverCases(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "case-*", MetaFile))
	if err != nil {
		return nil, err
	}
	slices.Sort(matches)
	return matches, nil
}

// StrategiesFor expands a strategy selection. "all" and "" mean both.
func StrategiesFor(selection string) ([]similarity.StrategyName, error) {
	switch selection {
	case "", "all":
		return []similarity.StrategyName{similarity.StrategyExact, similarity.StrategyAST}, nil
	}
	name, ok := similarity.ParseStrategyName(selection)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (want exact, ast or all)", selection)
	}
	return []similarity.StrategyName{name}, nil
}

// Status is the verdict for one case under one strategy.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// CaseResult is the outcome of one case under one strategy.
type CaseResult struct {
	Case              string                  `json:"case"`
	Status            Status                  `json:"status"`
	Message           string                  `json:"message"`
	Strategy          similarity.StrategyName `json:"strategy"`
	PositivesExpected int                     `json:"positives_expected"`
	PositivesDetected int                     `json:"positives_detected"`
	NegativesExpected int                     `json:"negatives_expected"`
	NegativesFP       int                     `json:"negatives_fp"`
	MissingPairs      int                     `json:"missing_pairs"`
	Failures          []string                `json:"failures"`
}

func (r *CaseResult) summarize() {
	r.Message = fmt.Sprintf("strategy=%s · pos %d/%d · neg_fp %d/%d · missing %d",
		r.Strategy, r.PositivesDetected, r.PositivesExpected, r.NegativesFP, r.NegativesExpected, r.MissingPairs)
}

// Metrics aggregates case results for one strategy.
type Metrics struct {
	PositivesExpected int `json:"positives_expected"`
	PositivesDetected int `json:"positives_detected"`
	NegativesExpected int `json:"negatives_expected"`
	NegativesFP       int `json:"negatives_fp"`
	MissingPairs      int `json:"missing_pairs"`
	CasesPass         int `json:"cases_pass"`
	CasesFail         int `json:"cases_fail"`
	CasesSkip         int `json:"cases_skip"`
}

// Add folds r into the totals. Skipped cases only bump CasesSkip.
func (m *Metrics) Add(r CaseResult) {
	switch r.Status {
	case StatusSkip:
		m.CasesSkip++
		return
	case StatusPass:
		m.CasesPass++
	default:
		m.CasesFail++
	}
	m.PositivesExpected += r.PositivesExpected
	m.PositivesDetected += r.PositivesDetected
	m.NegativesExpected += r.NegativesExpected
	m.NegativesFP += r.NegativesFP
	m.MissingPairs += r.MissingPairs
}

// StrategyReport holds every case result for one strategy.
type StrategyReport struct {
	Cases   []CaseResult `json:"cases"`
	Metrics Metrics      `json:"metrics"`
}

// Report maps strategy names to their results.
type Report map[similarity.StrategyName]*StrategyReport

// Failed reports whether any case failed under any strategy.
func (r Report) Failed() bool {
	for _, sr := range r {
		if sr.Metrics.CasesFail > 0 {
			return true
		}
	}
	return false
}

// WriteJSON writes the report to path, creating parent directories.
func (r Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Runner evaluates cases.
type Runner struct {
	service     *analysis.Service
	includeInit bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithIncludeInit keeps __init__ methods in the analysis.
func WithIncludeInit(include bool) Option {
	return func(r *Runner) {
		r.includeInit = include
	}
}

// WithService sets the service used to load case files.
func WithService(svc *analysis.Service) Option {
	return func(r *Runner) {
		r.service = svc
	}
}

// NewRunner creates a Runner. Case files are loaded with default
// configuration unless WithService is given.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.service == nil {
		r.service = analysis.New(analysis.WithConfig(config.DefaultConfig()))
	}
	return r
}

// ErrNoCases is returned when a directory has no case-*/meta.yaml.
var ErrNoCases = errors.New("no benchmark cases found")

// Run evaluates every case under dir with each strategy. onCase, when
// set, sees each result as it is produced.
func (r *Runner) Run(ctx context.Context, dir string, strategies []similarity.StrategyName, onCase func(CaseResult)) (Report, error) {
	metas, err := DiscoverCases(dir)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCases, dir)
	}

	cases := make([]*Case, 0, len(metas))
	for _, path := range metas {
		c, err := LoadCase(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	report := make(Report, len(strategies))
	for _, strategy := range strategies {
		sr := &StrategyReport{Cases: make([]CaseResult, 0, len(cases))}
		for _, c := range cases {
			var res CaseResult
			if c.Applies(strategy) {
				res, err = r.RunCase(ctx, c, strategy)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", c.ID, err)
				}
			} else {
				res = CaseResult{Case: c.ID, Status: StatusSkip, Strategy: strategy, Failures: []string{}}
				res.Message = fmt.Sprintf("strategy=%s · written for %s", strategy, c.Expected.Strategy)
			}
			sr.Cases = append(sr.Cases, res)
			sr.Metrics.Add(res)
			if onCase != nil {
				onCase(res)
			}
		}
		report[strategy] = sr
	}
	return report, nil
}

type unitKey struct {
	base     string
	qualname string
}

// RunCase evaluates one case under strategy regardless of the strategy
// it was written for. A pair whose units were not found counts as
// missing, and a missing negative also counts as a false positive.
// A member whose file and qualname match several units fails the case.
func (r *Runner) RunCase(ctx context.Context, c *Case, strategy similarity.StrategyName) (CaseResult, error) {
	ws, err := r.service.Load(ctx, []string{c.Root}, analysis.ScanOptions{}, analysis.ReadOptions{})
	if err != nil {
		return CaseResult{}, err
	}
	res, err := r.service.FindDuplicates(ws, similarity.Config{
		Strategy:    strategy,
		Threshold:   c.Expected.Threshold,
		IncludeInit: r.includeInit,
	})
	if err != nil {
		return CaseResult{}, err
	}

	units := make(map[unitKey]int, len(res.Units))
	ambiguous := make(map[unitKey]bool)
	for _, u := range res.Units {
		key := unitKey{filepath.Base(filepath.FromSlash(u.RelPath)), u.Qualname}
		if _, dup := units[key]; dup {
			ambiguous[key] = true
		}
		units[key] = u.ID
	}

	// unit ID -> members of its cluster
	membership := make(map[int]*roaring.Bitmap)
	for _, cl := range res.Clusters {
		bm := roaring.New()
		for _, id := range cl.Members {
			bm.Add(uint32(id))
		}
		for _, id := range cl.Members {
			membership[id] = bm
		}
	}

	out := CaseResult{Case: c.ID, Strategy: strategy, Failures: []string{}}
	for _, p := range c.Pairs {
		left, right := c.byLabel[p.Left], c.byLabel[p.Right]
		switch {
		case p.Relation.Positive():
			out.PositivesExpected++
		case p.Relation == RelationNegative:
			out.NegativesExpected++
		}

		lkey := unitKey{filepath.Base(left.File), left.Qualname}
		rkey := unitKey{filepath.Base(right.File), right.Qualname}
		if ambiguous[lkey] || ambiguous[rkey] {
			for _, m := range []struct {
				label string
				key   unitKey
			}{{p.Left, lkey}, {p.Right, rkey}} {
				if ambiguous[m.key] {
					out.Failures = append(out.Failures, fmt.Sprintf("Ambiguous member: %s=%s:%s matches more than one unit",
						m.label, m.key.base, m.key.qualname))
				}
			}
			continue
		}

		lid, lok := units[lkey]
		rid, rok := units[rkey]
		if !lok || !rok {
			out.MissingPairs++
			out.Failures = append(out.Failures, fmt.Sprintf("Missing units: %s=%s:%s or %s=%s:%s",
				p.Left, left.File, left.Qualname, p.Right, right.File, right.Qualname))
			if p.Relation == RelationNegative {
				out.NegativesFP++
			}
			continue
		}

		bm := membership[lid]
		same := bm != nil && bm.Contains(uint32(rid))
		switch {
		case p.Relation.Positive():
			if same {
				out.PositivesDetected++
			} else {
				out.Failures = append(out.Failures, fmt.Sprintf("Expected same cluster for %s-%s", p.Left, p.Right))
			}
		case p.Relation == RelationNegative:
			if same {
				out.NegativesFP++
				out.Failures = append(out.Failures, fmt.Sprintf("Expected different clusters for %s-%s", p.Left, p.Right))
			}
		default:
			out.Failures = append(out.Failures, fmt.Sprintf("Unknown relation '%s' for %s-%s", p.Relation, p.Left, p.Right))
		}
	}

	out.Status = StatusPass
	if len(out.Failures) > 0 {
		out.Status = StatusFail
	}
	out.summarize()
	return out, nil
}
