package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Report stacks several Renderables under one title. Data, when set,
// replaces the per-section data in JSON and TOON output.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	sections := make([]any, 0, len(r.Sections))
	for _, s := range r.Sections {
		sections = append(sections, s.RenderData())
	}
	return map[string]any{"title": r.Title, "sections": sections}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	heading(w, r.Title, colored, color.Bold, color.FgCyan)
	for i, s := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

var statusColors = map[string]func(string, ...interface{}) string{
	"pass":    color.GreenString,
	"ok":      color.GreenString,
	"fail":    color.RedString,
	"failed":  color.RedString,
	"error":   color.RedString,
	"skip":    color.YellowString,
	"skipped": color.YellowString,
	"warn":    color.YellowString,
}

// StatusColor colors text by a PASS/FAIL/SKIP style status word.
func StatusColor(status, text string) string {
	if paint, ok := statusColors[strings.ToLower(status)]; ok {
		return paint("%s", text)
	}
	return text
}
