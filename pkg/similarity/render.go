package similarity

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
)

const summaryTitle = "Similar or Duplicate Functions"

// Summary renders a Result for people. It satisfies the output
// package's Renderable interface; RenderData yields the Result itself.
type Summary struct {
	Result      *Result
	ShowMembers bool
	// Bullet prefixes member lines. Defaults to "·".
	Bullet string
}

// NewSummary creates a Summary that lists cluster members.
func NewSummary(r *Result) *Summary {
	return &Summary{Result: r, ShowMembers: true, Bullet: "·"}
}

// RenderData returns the serializable result.
func (s *Summary) RenderData() any {
	return s.Result
}

// RenderText writes the console summary.
func (s *Summary) RenderText(w io.Writer, colored bool) error {
	if colored {
		color.New(color.Bold, color.FgCyan).Fprintln(w, summaryTitle)
	} else {
		fmt.Fprintln(w, summaryTitle)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(summaryTitle)))

	info := fmt.Fprintln
	if colored {
		info = color.New(color.FgCyan).Fprintln
	}

	strategy := s.strategy()
	if s.Result == nil || len(s.Result.Clusters) == 0 {
		_, err := info(w, fmt.Sprintf("No duplicates found (strategy: %s).", strategy))
		return err
	}
	if _, err := info(w, fmt.Sprintf("Strategy: %s · Units: %d · Clusters: %d",
		strategy, len(s.Result.Units), len(s.Result.Clusters))); err != nil {
		return err
	}
	if !s.ShowMembers {
		return nil
	}

	bullet := cmp.Or(s.Bullet, "·")
	for _, c := range s.Result.Clusters {
		fmt.Fprintf(w, "- Cluster %d (size %d):\n", c.ID, c.Size())
		for _, u := range s.members(c) {
			fmt.Fprintf(w, "    %s %s:%d-%d  %s\n", bullet, u.RelPath, u.Span.Start, u.Span.End, u.Qualname)
		}
	}
	return nil
}

// RenderMarkdown writes the summary as a markdown section with one table
// per cluster.
func (s *Summary) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "## %s\n\n", summaryTitle)

	strategy := s.strategy()
	if s.Result == nil || len(s.Result.Clusters) == 0 {
		fmt.Fprintf(w, "No duplicates found (strategy: `%s`).\n\n", strategy)
		return nil
	}
	fmt.Fprintf(w, "**Strategy:** `%s` · **Units:** %d · **Clusters:** %d\n\n",
		strategy, len(s.Result.Units), len(s.Result.Clusters))
	if !s.ShowMembers {
		return nil
	}

	for _, c := range s.Result.Clusters {
		fmt.Fprintf(w, "### Cluster %d (size %d)\n\n", c.ID, c.Size())
		fmt.Fprintln(w, "| File | Lines | Function |")
		fmt.Fprintln(w, "| --- | --- | --- |")
		for _, u := range s.members(c) {
			fmt.Fprintf(w, "| %s | %d-%d | `%s` |\n", u.RelPath, u.Span.Start, u.Span.End, u.Qualname)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func (s *Summary) strategy() StrategyName {
	if s.Result == nil {
		return StrategyExact
	}
	return s.Result.Strategy()
}

// members returns the cluster's units ordered by path, then start line.
func (s *Summary) members(c Cluster) []CodeUnit {
	units := make([]CodeUnit, 0, len(c.Members))
	for _, id := range c.Members {
		if u, ok := s.Result.Unit(id); ok {
			units = append(units, u)
		}
	}
	slices.SortStableFunc(units, func(a, b CodeUnit) int {
		return cmp.Or(cmp.Compare(a.RelPath, b.RelPath), cmp.Compare(a.Span.Start, b.Span.Start))
	})
	return units
}
