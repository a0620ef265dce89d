package similarity

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/lithammer/dedent"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/locus/pkg/parser"
)

// Placeholders substituted for erased names and literals.
const (
	placeholderFunc    = "FUNC"
	placeholderID      = "ID"
	placeholderKeyword = "KW"
	placeholderString  = "STR"
	placeholderBytes   = "BYTES"
	placeholderNumber  = "0"

	// emptySlot marks an omitted slice bound.
	emptySlot = "<empty>"
)

// Canonical is the canonical form of a routine.
// Nodes is zero when the source could not be parsed and Dump holds the
// dedented, trimmed text instead of a tree dump.
type Canonical struct {
	Dump  string
	Nodes int
}

// Canonicalizer rewrites routine source into a form that is independent
// of names, literal values, docstrings and layout. Results are memoized
// for the lifetime of the Canonicalizer. It is not safe for concurrent use.
type Canonicalizer struct {
	parser *parser.Parser
	memo   map[uint64]memoEntry
}

type memoEntry struct {
	source string
	form   Canonical
}

// NewCanonicalizer creates a Canonicalizer that parses with p.
func NewCanonicalizer(p *parser.Parser) *Canonicalizer {
	return &Canonicalizer{
		parser: p,
		memo:   make(map[uint64]memoEntry),
	}
}

// CanonicalizeSource canonicalizes a single snippet with a throwaway parser.
func CanonicalizeSource(source string) Canonical {
	p := parser.New()
	defer p.Close()
	return NewCanonicalizer(p).Canonicalize(source)
}

// Canonicalize returns the canonical form of source.
func (c *Canonicalizer) Canonicalize(source string) Canonical {
	h := xxhash.Sum64String(source)
	if e, ok := c.memo[h]; ok && e.source == source {
		return e.form
	}

	form := c.canonicalize(source)
	// On a hash collision the first entry stays; the newcomer is recomputed each time.
	if _, taken := c.memo[h]; !taken {
		c.memo[h] = memoEntry{source: source, form: form}
	}
	return form
}

func (c *Canonicalizer) canonicalize(source string) Canonical {
	text := dedent.Dedent(source)
	fallback := Canonical{Dump: strings.TrimSpace(text)}

	src := []byte(text)
	result, err := c.parser.ParsePython(src, "")
	if err != nil {
		return fallback
	}
	defer result.Close()
	if result.HasError() {
		return fallback
	}

	b := &builder{source: src}
	root := b.build(result.Root())
	if root == nil {
		return fallback
	}

	var sb strings.Builder
	root.dump(&sb, "")
	return Canonical{Dump: sb.String(), Nodes: root.count()}
}

// canonNode is an owned, position-free copy of a syntax node.
// Leaves carry a value; anonymous tokens carry only their kind.
type canonNode struct {
	kind     string
	value    string
	named    bool
	leaf     bool
	children []canonChild
}

type canonChild struct {
	field string
	node  *canonNode
}

func (n *canonNode) add(field string, child *canonNode) {
	if child != nil {
		n.children = append(n.children, canonChild{field: field, node: child})
	}
}

func (n *canonNode) count() int {
	total := 0
	if n.named {
		total = 1
	}
	for _, c := range n.children {
		total += c.node.count()
	}
	return total
}

func (n *canonNode) dump(sb *strings.Builder, field string) {
	if field != "" {
		sb.WriteString(field)
		sb.WriteByte('=')
	}
	switch {
	case !n.named:
		sb.WriteString(strconv.Quote(n.kind))
	case n.leaf:
		sb.WriteString(n.kind)
		sb.WriteByte(':')
		sb.WriteString(strconv.Quote(n.value))
	default:
		sb.WriteString(n.kind)
		sb.WriteByte('(')
		for i, c := range n.children {
			if i > 0 {
				sb.WriteByte(' ')
			}
			c.node.dump(sb, c.field)
		}
		sb.WriteByte(')')
	}
}

func leaf(kind, value string) *canonNode {
	return &canonNode{kind: kind, value: value, named: true, leaf: true}
}

func token(kind string) *canonNode {
	return &canonNode{kind: kind}
}

// punctuation tokens carry no meaning once the tree shape is known.
var punctuation = map[string]bool{
	"(": true, ")": true, "[": true, "]": true, "{": true, "}": true,
	",": true, ":": true, ";": true, ".": true,
}

// extras are dropped wherever they appear.
var extras = map[string]bool{
	"comment":           true,
	"line_continuation": true,
}

// aliasKinds folds spellings the grammar distinguishes but the language does not.
var aliasKinds = map[string]string{
	"expression_list": "tuple",
	"pattern_list":    "tuple",
	"tuple_pattern":   "tuple",
}

type builder struct {
	source []byte
}

type childRef struct {
	field string
	node  *sitter.Node
}

func children(n *sitter.Node) []childRef {
	cursor := sitter.NewTreeCursor(n)
	defer cursor.Close()

	var refs []childRef
	if !cursor.GoToFirstChild() {
		return refs
	}
	for {
		refs = append(refs, childRef{field: cursor.CurrentFieldName(), node: cursor.CurrentNode()})
		if !cursor.GoToNextSibling() {
			break
		}
	}
	return refs
}

func (b *builder) text(n *sitter.Node) string {
	return parser.GetNodeText(n, b.source)
}

func (b *builder) build(n *sitter.Node) *canonNode {
	kind := n.Type()
	if extras[kind] {
		return nil
	}
	if !n.IsNamed() {
		if punctuation[kind] {
			return nil
		}
		return token(kind)
	}

	switch kind {
	case "identifier", "keyword_identifier":
		return leaf("identifier", placeholderID)
	case "integer", "float":
		return leaf("number", placeholderNumber)
	case "string":
		return b.buildString(n)
	case "concatenated_string":
		return b.buildConcatenated(n)
	case "parenthesized_expression":
		if inner := b.soleNamedChild(n); inner != nil {
			return b.build(inner)
		}
	case "function_definition":
		return b.buildFunction(n)
	case "class_definition":
		return b.buildWith(n, func(ref childRef) *canonNode {
			if ref.field == "name" {
				return leaf("identifier", b.text(ref.node))
			}
			return nil
		})
	case "keyword_argument":
		return b.buildWith(n, func(ref childRef) *canonNode {
			if ref.field == "name" {
				return leaf("identifier", placeholderKeyword)
			}
			return nil
		})
	case "import_statement", "import_from_statement", "future_import_statement":
		return b.buildImport(n)
	case "global_statement", "nonlocal_statement":
		return b.buildWith(n, func(ref childRef) *canonNode {
			if ref.node.Type() == "identifier" {
				return leaf("identifier", b.text(ref.node))
			}
			return nil
		})
	case "slice":
		return b.buildSlice(n)
	case "subscript":
		return b.buildSubscript(n)
	case "true", "false", "none", "ellipsis":
		return leaf(kind, b.text(n))
	}

	return b.buildWith(n, nil)
}

// buildWith copies n generically, letting override replace individual children.
func (b *builder) buildWith(n *sitter.Node, override func(childRef) *canonNode) *canonNode {
	kind := n.Type()
	if alias, ok := aliasKinds[kind]; ok {
		kind = alias
	}
	out := &canonNode{kind: kind, named: true}

	refs := children(n)
	if len(refs) == 0 {
		out.leaf = true
		out.value = b.text(n)
		return out
	}
	for _, ref := range refs {
		if override != nil {
			if replaced := override(ref); replaced != nil {
				out.add(ref.field, replaced)
				continue
			}
		}
		out.add(ref.field, b.build(ref.node))
	}
	return out
}

func (b *builder) buildFunction(n *sitter.Node) *canonNode {
	out := &canonNode{kind: "function_definition", named: true}
	for _, ref := range children(n) {
		switch {
		case !ref.node.IsNamed() && ref.node.Type() == "async":
			continue
		case ref.field == "name":
			out.add(ref.field, leaf("identifier", placeholderFunc))
		case ref.field == "body":
			out.add(ref.field, b.buildBody(ref.node))
		default:
			out.add(ref.field, b.build(ref.node))
		}
	}
	return out
}

// buildBody copies a function body without its docstring.
func (b *builder) buildBody(block *sitter.Node) *canonNode {
	out := &canonNode{kind: block.Type(), named: true}
	first := true
	for _, ref := range children(block) {
		if extras[ref.node.Type()] {
			continue
		}
		if first && ref.node.IsNamed() {
			first = false
			if b.isDocstring(ref.node) {
				continue
			}
		}
		out.add(ref.field, b.build(ref.node))
	}
	return out
}

func (b *builder) isDocstring(stmt *sitter.Node) bool {
	if stmt.Type() != "expression_statement" {
		return false
	}
	value := b.soleNamedChild(stmt)
	if value == nil {
		return false
	}
	switch value.Type() {
	case "string":
		return b.stringPrefix(value) == plainString
	case "concatenated_string":
		for _, ref := range children(value) {
			if ref.node.Type() == "string" && b.stringPrefix(ref.node) != plainString {
				return false
			}
		}
		return true
	}
	return false
}

func (b *builder) soleNamedChild(n *sitter.Node) *sitter.Node {
	var sole *sitter.Node
	for _, ref := range children(n) {
		if !ref.node.IsNamed() || extras[ref.node.Type()] {
			continue
		}
		if sole != nil {
			return nil
		}
		sole = ref.node
	}
	return sole
}

type stringKind int

const (
	plainString stringKind = iota
	byteString
	formatString
)

// stringPrefix classifies a string literal by the prefix before its quote.
func (b *builder) stringPrefix(n *sitter.Node) stringKind {
	text := b.text(n)
	end := strings.IndexAny(text, `'"`)
	if end < 0 {
		return plainString
	}
	prefix := strings.ToLower(text[:end])
	switch {
	case strings.ContainsRune(prefix, 'b'):
		return byteString
	case strings.ContainsRune(prefix, 'f'):
		return formatString
	default:
		return plainString
	}
}

func (b *builder) buildString(n *sitter.Node) *canonNode {
	switch b.stringPrefix(n) {
	case byteString:
		return leaf("bytes", placeholderBytes)
	case formatString:
		return b.buildFormatString(n)
	default:
		return leaf("string", placeholderString)
	}
}

// buildFormatString keeps the interpolations of an f-string and collapses its text.
func (b *builder) buildFormatString(n *sitter.Node) *canonNode {
	out := &canonNode{kind: "fstring", named: true}
	for _, ref := range children(n) {
		if ref.node.Type() == "interpolation" {
			out.add("", b.build(ref.node))
		}
	}
	if len(out.children) == 0 {
		return leaf("fstring", placeholderString)
	}
	return out
}

func (b *builder) buildConcatenated(n *sitter.Node) *canonNode {
	out := &canonNode{kind: "concatenated_string", named: true}
	parts := 0
	kind := plainString
	for _, ref := range children(n) {
		if ref.node.Type() != "string" {
			continue
		}
		parts++
		if k := b.stringPrefix(ref.node); k != plainString {
			kind = k
		}
		out.add("", b.buildString(ref.node))
	}
	// Adjacent plain or byte literals are a single constant.
	switch {
	case kind == plainString && parts > 0:
		return leaf("string", placeholderString)
	case kind == byteString:
		return leaf("bytes", placeholderBytes)
	}
	return out
}

func (b *builder) buildImport(n *sitter.Node) *canonNode {
	return b.buildWith(n, func(ref childRef) *canonNode {
		if ref.field == "module_name" {
			return leaf("module", b.text(ref.node))
		}
		switch ref.node.Type() {
		case "dotted_name":
			return leaf("dotted_name", placeholderID)
		case "aliased_import":
			return b.buildWith(ref.node, func(inner childRef) *canonNode {
				switch inner.field {
				case "name":
					return leaf("dotted_name", placeholderID)
				case "alias":
					return leaf("identifier", placeholderID)
				}
				return nil
			})
		}
		return nil
	})
}

var sliceSlots = [...]string{"lower", "upper", "step"}

// buildSlice emits every bound of a slice in its own slot. The grammar
// gives the bounds no field names, so their position is read off the colons.
func (b *builder) buildSlice(n *sitter.Node) *canonNode {
	var bounds [len(sliceSlots)]*canonNode
	slot := 0
	for _, ref := range children(n) {
		switch {
		case ref.node.Type() == ":":
			slot++
		case !ref.node.IsNamed() || extras[ref.node.Type()]:
		case slot < len(bounds):
			bounds[slot] = b.build(ref.node)
		}
	}

	out := &canonNode{kind: "slice", named: true}
	for i, bound := range bounds {
		if bound == nil {
			bound = token(emptySlot)
		}
		out.add(sliceSlots[i], bound)
	}
	return out
}

// buildSubscript folds the indices of x[a, b] and x[a,] into one tuple,
// the same shape as x[(a, b)].
func (b *builder) buildSubscript(n *sitter.Node) *canonNode {
	out := &canonNode{kind: "subscript", named: true}
	index := &canonNode{kind: "tuple", named: true}
	comma := false
	for _, ref := range children(n) {
		switch {
		case ref.field == "subscript":
			index.add("", b.build(ref.node))
		case ref.node.Type() == ",":
			comma = true
		default:
			out.add(ref.field, b.build(ref.node))
		}
	}

	switch {
	case comma:
		out.add("subscript", index)
	case len(index.children) == 1:
		out.add("subscript", index.children[0].node)
	}
	return out
}
