package similarity

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/locus/pkg/parser"
	"github.com/panbanda/locus/pkg/source"
)

// Extractor finds every function and method in a set of Python files.
type Extractor struct {
	parser *parser.Parser
	nextID int
}

// NewExtractor creates an Extractor that parses with p.
func NewExtractor(p *parser.Parser) *Extractor {
	return &Extractor{parser: p}
}

// Extract returns one CodeUnit per function definition, in file order and
// then document order. Files that are not .py modules, are empty, or fail
// to parse contribute no units.
func (e *Extractor) Extract(files []source.File) ([]CodeUnit, error) {
	e.nextID = 0
	var units []CodeUnit
	for _, f := range files {
		if !parser.IsPythonModule(f.Path) || len(f.Content) == 0 {
			continue
		}

		result, err := e.parser.ParsePython(f.Content, f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.Path, err)
		}
		if !result.HasError() {
			w := &unitWalker{
				extractor: e,
				file:      f,
				lines:     strings.Split(string(f.Content), "\n"),
			}
			w.visit(result.Root(), nil)
			units = append(units, w.units...)
		}
		result.Close()
	}
	return units, nil
}

type unitWalker struct {
	extractor *Extractor
	file      source.File
	lines     []string
	units     []CodeUnit
}

func (w *unitWalker) visit(n *sitter.Node, classes []string) {
	switch n.Type() {
	case "class_definition":
		name := parser.GetNodeText(n.ChildByFieldName("name"), w.file.Content)
		w.visitChildren(n.ChildByFieldName("body"), append(classes[:len(classes):len(classes)], name))
		return
	case "function_definition":
		w.emit(n, classes)
		w.visitChildren(n.ChildByFieldName("body"), classes)
		return
	}
	w.visitChildren(n, classes)
}

func (w *unitWalker) visitChildren(n *sitter.Node, classes []string) {
	if n == nil {
		return
	}
	for i := range int(n.NamedChildCount()) {
		w.visit(n.NamedChild(i), classes)
	}
}

func (w *unitWalker) emit(n *sitter.Node, classes []string) {
	name := parser.GetNodeText(n.ChildByFieldName("name"), w.file.Content)
	qualname := name
	if len(classes) > 0 {
		qualname = strings.Join(classes, ".") + "." + name
	}

	start, end := parser.LineSpan(n)
	text := strings.TrimRight(parser.GetNodeText(n, w.file.Content), "\r\n")
	if text == "" {
		text = w.sliceLines(start, end)
	}

	relPath := w.file.RelPath
	if relPath == "" {
		relPath = w.file.Path
	}

	w.units = append(w.units, CodeUnit{
		ID:       w.extractor.nextID,
		File:     w.file.Path,
		RelPath:  relPath,
		Qualname: qualname,
		Span:     Span{Start: start, End: end},
		Source:   text,
	})
	w.extractor.nextID++
}

func (w *unitWalker) sliceLines(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(w.lines) {
		end = len(w.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(w.lines[start-1:end], "\n")
}
