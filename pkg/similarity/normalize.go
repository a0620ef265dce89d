package similarity

import "strings"

// NormalizeText trims s and collapses every whitespace run, newlines
// included, to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var trivialNames = map[string]bool{
	"__repr__":     true,
	"__str__":      true,
	"__format__":   true,
	"__eq__":       true,
	"__ne__":       true,
	"__lt__":       true,
	"__le__":       true,
	"__gt__":       true,
	"__ge__":       true,
	"__hash__":     true,
	"__bool__":     true,
	"__iter__":     true,
	"__next__":     true,
	"__aiter__":    true,
	"__anext__":    true,
	"__len__":      true,
	"__getitem__":  true,
	"__setitem__":  true,
	"__delitem__":  true,
	"__contains__": true,
	"__enter__":    true,
	"__exit__":     true,
	"__aenter__":   true,
	"__aexit__":    true,
	"__getattr__":  true,
	"__setattr__":  true,
}

var trivialPrefixes = []string{"get_", "set_", "to_", "as_"}

// IsTrivialQualname reports whether the last segment of qualname names an
// accessor, comparison or iteration protocol method, or a get_/set_/to_/as_
// helper. Such routines are short and structurally alike by nature.
func IsTrivialQualname(qualname string) bool {
	name := qualname
	if i := strings.LastIndexByte(qualname, '.'); i >= 0 {
		name = qualname[i+1:]
	}
	if trivialNames[name] {
		return true
	}
	for _, prefix := range trivialPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// BelowMinNodes reports whether a known node count falls under minNodes.
// A zero count means canonicalization failed and never excludes a unit.
func BelowMinNodes(nodeCount, minNodes int) bool {
	return minNodes > 0 && nodeCount > 0 && nodeCount < minNodes
}
