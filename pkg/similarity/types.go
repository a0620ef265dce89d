package similarity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StrategyName identifies a similarity strategy.
type StrategyName string

const (
	// StrategyExact groups units whose whitespace-normalized text is identical.
	StrategyExact StrategyName = "exact"
	// StrategyAST groups units whose canonicalized syntax trees are identical.
	StrategyAST StrategyName = "ast"
)

// ParseStrategyName maps a user-facing name to a strategy.
// Unknown or empty names resolve to StrategyExact and ok is false.
func ParseStrategyName(name string) (StrategyName, bool) {
	switch StrategyName(name) {
	case StrategyExact:
		return StrategyExact, true
	case StrategyAST:
		return StrategyAST, true
	default:
		return StrategyExact, false
	}
}

// Span is an inclusive 1-based line range. It encodes as [start, end].
type Span struct {
	Start int
	End   int
}

// MarshalJSON implements json.Marshaler.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("span must be [start, end]: %w", err)
	}
	s.Start, s.End = pair[0], pair[1]
	return nil
}

// Lines returns the number of lines covered.
func (s Span) Lines() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// CodeUnit is one function or method extracted from a source file.
// Source is excluded from serialized results.
type CodeUnit struct {
	ID       int    `json:"id"`
	File     string `json:"file"`
	RelPath  string `json:"rel_path"`
	Qualname string `json:"qualname"`
	Span     Span   `json:"span"`
	Source   string `json:"-"`
}

// IsInit reports whether the unit is a constructor.
func (u CodeUnit) IsInit() bool {
	return u.Qualname == "__init__" || strings.HasSuffix(u.Qualname, ".__init__")
}

// Cluster groups unit IDs that share a strategy key.
type Cluster struct {
	ID       int     `json:"id"`
	Members  []int   `json:"member_ids"`
	Strategy string  `json:"strategy"`
	ScoreMin float64 `json:"score_min"`
	ScoreMax float64 `json:"score_max"`
}

// Size returns the number of members.
func (c Cluster) Size() int { return len(c.Members) }

// Match is a pairwise record between two members of the same cluster.
// A always precedes B in cluster order.
type Match struct {
	A        int            `json:"a_id"`
	B        int            `json:"b_id"`
	Score    float64        `json:"score"`
	Strategy string         `json:"strategy"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// Result is the complete outcome of one similarity run.
type Result struct {
	Units    []CodeUnit     `json:"units"`
	Clusters []Cluster      `json:"clusters"`
	Matches  []Match        `json:"matches"`
	Meta     map[string]any `json:"meta"`
}

// Unit returns the unit with id, or false when absent.
func (r *Result) Unit(id int) (CodeUnit, bool) {
	if id >= 0 && id < len(r.Units) && r.Units[id].ID == id {
		return r.Units[id], true
	}
	for _, u := range r.Units {
		if u.ID == id {
			return u, true
		}
	}
	return CodeUnit{}, false
}

// Strategy reports the strategy actually applied, falling back to exact.
func (r *Result) Strategy() StrategyName {
	if name, ok := r.Meta[MetaStrategy].(string); ok {
		s, _ := ParseStrategyName(name)
		return s
	}
	return StrategyExact
}

// Meta keys written by Analyze.
const (
	MetaStrategy          = "strategy"
	MetaRequestedStrategy = "requested_strategy"
	MetaThreshold         = "threshold"
	MetaIncludeInit       = "include_init"
	MetaUnits             = "units"
	MetaFilteredUnits     = "filtered_units"
	MetaDroppedUnits      = "dropped_units"
	MetaClusterSize       = "cluster_size"
)
