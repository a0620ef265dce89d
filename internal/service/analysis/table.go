package analysis

import (
	"fmt"

	"github.com/panbanda/locus/internal/output"
)

// InventoryTotals sums FileStat values.
type InventoryTotals struct {
	Files       int `json:"files"`
	Lines       int `json:"lines"`
	Bytes       int `json:"bytes"`
	Units       int `json:"units"`
	ParseErrors int `json:"parse_errors"`
}

// FileTable renders per-file stats with a totals footer.
func FileTable(stats []FileStat) *output.Table {
	var totals InventoryTotals
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		totals.Files++
		totals.Lines += s.Lines
		totals.Bytes += s.Bytes
		totals.Units += s.Units
		units := fmt.Sprintf("%d", s.Units)
		if s.ParseError {
			totals.ParseErrors++
			units = "parse error"
		}
		rows = append(rows, []string{s.RelPath, fmt.Sprintf("%d", s.Lines), fmt.Sprintf("%d", s.Bytes), units})
	}

	return output.NewTable(
		"Python Files",
		[]string{"File", "Lines", "Bytes", "Units"},
		rows,
		[]string{
			fmt.Sprintf("%d files", totals.Files),
			fmt.Sprintf("%d", totals.Lines),
			fmt.Sprintf("%d", totals.Bytes),
			fmt.Sprintf("%d", totals.Units),
		},
		struct {
			Files  []FileStat      `json:"files"`
			Totals InventoryTotals `json:"totals"`
		}{stats, totals},
	)
}
