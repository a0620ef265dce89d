package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Table is a titled grid with an optional footer row. Data, when set,
// replaces the rows in JSON and TOON output.
type Table struct {
	Title   string     `json:"-"`
	Headers []string   `json:"-"`
	Rows    [][]string `json:"-"`
	Footer  []string   `json:"-"`
	Data    any        `json:"data,omitempty"`
}

func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{Title: title, Headers: headers, Rows: rows, Footer: footer, Data: data}
}

// RenderData returns Data, or the rows keyed by header.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, cell := range row {
			if i < len(t.Headers) {
				rec[t.Headers[i]] = cell
			}
		}
		records = append(records, rec)
	}
	return records
}

// heading writes title underlined with '=' and a blank line.
func heading(w io.Writer, title string, colored bool, attrs ...color.Attribute) {
	if title == "" {
		return
	}
	if colored {
		color.New(attrs...).Fprintln(w, title)
	} else {
		fmt.Fprintln(w, title)
	}
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", len(title)))
}

var leftAligned = tw.CellAlignment{Global: tw.AlignLeft}

// borderless draws column-aligned text with no rules between cells.
var borderless = tw.Rendition{
	Borders: tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
	Settings: tw.Settings{
		Separators: tw.Separators{BetweenColumns: tw.Off},
	},
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	heading(w, t.Title, colored, color.Bold)

	grid := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  leftAligned,
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: leftAligned},
			Footer: tw.CellConfig{Alignment: leftAligned},
		}),
		tablewriter.WithRendition(borderless),
	)
	grid.Header(t.Headers)
	for _, row := range t.Rows {
		grid.Append(row)
	}
	if len(t.Footer) > 0 {
		cells := make([]any, 0, len(t.Footer))
		for _, c := range t.Footer {
			cells = append(cells, c)
		}
		grid.Footer(cells...)
	}
	grid.Render()
	_, err := fmt.Fprintln(w)
	return err
}

func markdownRow(w io.Writer, cells []string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}
	markdownRow(w, t.Headers)

	rule := make([]string, len(t.Headers))
	for i := range rule {
		rule[i] = "---"
	}
	markdownRow(w, rule)

	for _, row := range t.Rows {
		markdownRow(w, row)
	}
	if len(t.Footer) > 0 {
		markdownRow(w, t.Footer)
	}
	_, err := fmt.Fprintln(w)
	return err
}
