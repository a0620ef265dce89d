// Package parser parses Python modules with tree-sitter.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser holds a tree-sitter parser bound to the Python grammar.
// It is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// Tree is a parsed module. Close it when done.
type Tree struct {
	tree   *sitter.Tree
	Source []byte
	Path   string
}

func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Parser{parser: p}
}

// ParsePython parses source. path is informational. Syntax errors do not
// fail the parse; check Tree.HasError.
func (p *Parser) ParsePython(source []byte, path string) (*Tree, error) {
	t, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &Tree{tree: t, Source: source, Path: path}, nil
}

func (p *Parser) Close() {
	p.parser.Close()
}

// Root returns the module node, or nil for a nil tree.
func (t *Tree) Root() *sitter.Node {
	if t == nil || t.tree == nil {
		return nil
	}
	return t.tree.RootNode()
}

// HasError reports ERROR or MISSING nodes anywhere in the tree.
func (t *Tree) HasError() bool {
	root := t.Root()
	return root == nil || root.HasError()
}

func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

// IsPythonModule reports whether path names a .py module.
// Stubs (.pyi) and windowed scripts (.pyw) are not analyzed.
func IsPythonModule(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".py")
}

// Walk visits node and its descendants depth first. Returning false from
// fn skips the node's children. The node kind is passed in so callers do
// not pay for a second cgo call.
func Walk(node *sitter.Node, fn func(n *sitter.Node, kind string) bool) {
	if node == nil || !fn(node, node.Type()) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		Walk(node.Child(i), fn)
	}
}

// FindNodesByType returns every node of the given kind in document order.
func FindNodesByType(root *sitter.Node, kind string) []*sitter.Node {
	var found []*sitter.Node
	Walk(root, func(n *sitter.Node, k string) bool {
		if k == kind {
			found = append(found, n)
		}
		return true
	})
	return found
}

// GetNodeText returns the source covered by node, or "" when node is nil
// or its offsets fall outside source.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || int(end) > len(source) {
		return ""
	}
	return string(source[start:end])
}

// LineSpan returns the 1-based inclusive line range covered by node.
// A node whose end point sits at column zero of a later row ends on
// the previous line.
func LineSpan(node *sitter.Node) (start, end int) {
	sp, ep := node.StartPoint(), node.EndPoint()
	start, end = int(sp.Row)+1, int(ep.Row)+1
	if ep.Column == 0 && ep.Row > sp.Row {
		end--
	}
	return start, end
}
