package bench

import (
	"fmt"

	"github.com/panbanda/locus/internal/output"
	"github.com/panbanda/locus/pkg/similarity"
)

// Table summarizes the report, one row per strategy in the given order.
func (r Report) Table(strategies []similarity.StrategyName) *output.Table {
	rows := make([][]string, 0, len(strategies))
	for _, s := range strategies {
		sr, ok := r[s]
		if !ok {
			continue
		}
		m := sr.Metrics
		rows = append(rows, []string{
			string(s),
			fmt.Sprintf("%d", m.CasesPass),
			fmt.Sprintf("%d", m.CasesFail),
			fmt.Sprintf("%d", m.CasesSkip),
			fmt.Sprintf("%d/%d", m.PositivesDetected, m.PositivesExpected),
			fmt.Sprintf("%d/%d", m.NegativesFP, m.NegativesExpected),
			fmt.Sprintf("%d", m.MissingPairs),
		})
	}
	return output.NewTable(
		"Benchmark Summary",
		[]string{"Strategy", "Pass", "Fail", "Skip", "Positives", "Neg FP", "Missing"},
		rows,
		nil,
		r,
	)
}

// SummaryLine is the one-line totals for a strategy.
func (m Metrics) SummaryLine() string {
	return fmt.Sprintf("Summary: cases PASS=%d FAIL=%d SKIP=%d TOTAL=%d | pos %d/%d neg_fp %d/%d missing %d",
		m.CasesPass, m.CasesFail, m.CasesSkip, m.CasesPass+m.CasesFail+m.CasesSkip,
		m.PositivesDetected, m.PositivesExpected, m.NegativesFP, m.NegativesExpected, m.MissingPairs)
}
