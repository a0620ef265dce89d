// Package output renders command results as text, markdown, JSON or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	toon "github.com/toon-format/toon-go"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

var formatNames = map[string]Format{
	"text":     FormatText,
	"json":     FormatJSON,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"toon":     FormatTOON,
}

// Formats lists the accepted format names.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatMarkdown, FormatTOON}
}

// ParseFormat maps a case-insensitive name to a Format. Unknown names
// yield FormatText.
func ParseFormat(s string) Format {
	if f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return FormatText
}

// Renderable is a value with its own text and markdown layouts.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData is what JSON and TOON encode.
	RenderData() any
}

// Formatter writes values in a single Format.
type Formatter struct {
	format  Format
	w       io.Writer
	closer  io.Closer
	colored bool
}

// NewFormatter writes to the file at path, or stdout when path is empty.
// File output is never colored.
func NewFormatter(format Format, path string, colored bool) (*Formatter, error) {
	if path == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	f := NewWriterFormatter(format, file, false)
	f.closer = file
	return f, nil
}

// NewWriterFormatter writes to w.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, w: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

func (f *Formatter) Writer() io.Writer { return f.w }
func (f *Formatter) Format() Format    { return f.format }
func (f *Formatter) Colored() bool     { return f.colored }

// Output writes v. Renderable values lay out their own text and markdown;
// anything else is written as JSON, fenced in markdown mode.
func (f *Formatter) Output(v any) error {
	r, renderable := v.(Renderable)
	if renderable {
		v = r.RenderData()
	}

	switch {
	case f.format == FormatJSON:
		return writeJSON(f.w, v)
	case f.format == FormatTOON:
		return writeTOON(f.w, v)
	case !renderable && f.format == FormatMarkdown:
		fmt.Fprintln(f.w, "```json")
		if err := writeJSON(f.w, v); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.w, "```")
		return err
	case !renderable:
		return writeJSON(f.w, v)
	case f.format == FormatMarkdown:
		return r.RenderMarkdown(f.w)
	default:
		return r.RenderText(f.w, f.colored)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTOON(w io.Writer, v any) error {
	out, err := MarshalTOON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// MarshalTOON encodes v as TOON. v is round-tripped through JSON first so
// struct tags and MarshalJSON methods decide the field names.
func MarshalTOON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	out, err := toon.Marshal(generic, toon.WithIndent(2))
	if err != nil {
		return "", fmt.Errorf("toon: %w", err)
	}
	return string(out), nil
}
