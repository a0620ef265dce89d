package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/locus/pkg/parser"
)

func TestCanonicalize_Equivalent(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "renamed function and locals",
			a:    "def total(items):\n    acc = 0\n    for x in items:\n        acc += x\n    return acc\n",
			b:    "def sum_all(values):\n    result = 0\n    for v in values:\n        result += v\n    return result\n",
		},
		{
			name: "changed literals",
			a:    "def f():\n    return compute(1, 'a', 2.5)\n",
			b:    "def f():\n    return compute(7, \"b\", 0.1)\n",
		},
		{
			name: "docstring dropped",
			a:    "def f(x):\n    \"\"\"Return x doubled.\"\"\"\n    return x * 2\n",
			b:    "def f(x):\n    return x * 2\n",
		},
		{
			name: "concatenated docstring dropped",
			a:    "def f(x):\n    'part one' 'part two'\n    return x\n",
			b:    "def f(x):\n    return x\n",
		},
		{
			name: "async and sync",
			a:    "async def fetch(url):\n    return await get(url)\n",
			b:    "def fetch(url):\n    return await get(url)\n",
		},
		{
			name: "comments ignored",
			a:    "def f(x):\n    # increment\n    return x + 1  # done\n",
			b:    "def f(x):\n    return x + 1\n",
		},
		{
			name: "keyword argument names",
			a:    "def f():\n    return build(size=1)\n",
			b:    "def f():\n    return build(width=1)\n",
		},
		{
			name: "attribute names",
			a:    "def f(self):\n    return self.alpha.beta\n",
			b:    "def f(this):\n    return this.gamma.delta\n",
		},
		{
			name: "import names",
			a:    "def f():\n    import os.path as p\n    return p\n",
			b:    "def f():\n    import json as j\n    return j\n",
		},
		{
			name: "redundant parentheses",
			a:    "def f(a, b):\n    return (a + b)\n",
			b:    "def f(a, b):\n    return a + b\n",
		},
		{
			name: "formatting",
			a:    "def f(a,b):\n    return g(a,\n             b)\n",
			b:    "def f(a, b):\n    return g(a, b)\n",
		},
		{
			name: "f-string text",
			a:    "def f(name):\n    return f\"hello {name}\"\n",
			b:    "def f(user):\n    return f\"bye {user}!\"\n",
		},
		{
			name: "slice bounds renamed",
			a:    "def f(xs, n):\n    return xs[n:-1]\n",
			b:    "def f(ys, k):\n    return ys[k:-5]\n",
		},
		{
			name: "omitted step",
			a:    "def f(xs):\n    return xs[1:2]\n",
			b:    "def f(xs):\n    return xs[1:2:]\n",
		},
		{
			name: "tuple index spellings",
			a:    "def f(m, i, j):\n    return m[i, j]\n",
			b:    "def f(m, i, j):\n    return m[(i, j)]\n",
		},
		{
			name: "indented method body",
			a:    "def m(self):\n        return self.x + 1",
			b:    "def m(self):\n    return self.y + 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := CanonicalizeSource(tt.a)
			b := CanonicalizeSource(tt.b)
			assert.Positive(t, a.Nodes)
			assert.Equal(t, a.Dump, b.Dump)
			assert.Equal(t, a.Nodes, b.Nodes)
		})
	}
}

func TestCanonicalize_Distinct(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{
			name: "different operator",
			a:    "def f(a, b):\n    return a + b\n",
			b:    "def f(a, b):\n    return a - b\n",
		},
		{
			name: "bytes and str",
			a:    "def f():\n    return b'x'\n",
			b:    "def f():\n    return 'x'\n",
		},
		{
			name: "keyword and positional",
			a:    "def f():\n    return build(size=1)\n",
			b:    "def f():\n    return build(1)\n",
		},
		{
			name: "from module kept",
			a:    "def f():\n    from os import path\n    return path\n",
			b:    "def f():\n    from sys import path\n    return path\n",
		},
		{
			name: "nested class name kept",
			a:    "def f():\n    class Foo:\n        pass\n    return Foo\n",
			b:    "def f():\n    class Bar:\n        pass\n    return Bar\n",
		},
		{
			name: "boolean constants kept",
			a:    "def f():\n    return True\n",
			b:    "def f():\n    return False\n",
		},
		{
			name: "f-string interpolation count",
			a:    "def f(a, b):\n    return f\"{a}\"\n",
			b:    "def f(a, b):\n    return f\"{a}{b}\"\n",
		},
		{
			name: "extra statement",
			a:    "def f(x):\n    return x\n",
			b:    "def f(x):\n    x = x\n    return x\n",
		},
		{
			name: "slice lower and upper",
			a:    "def f(xs):\n    return xs[1:]\n",
			b:    "def f(xs):\n    return xs[:1]\n",
		},
		{
			name: "slice upper and step",
			a:    "def f(xs):\n    return xs[1:2]\n",
			b:    "def f(xs):\n    return xs[1::2]\n",
		},
		{
			name: "slice step only",
			a:    "def f(xs):\n    return xs[::2]\n",
			b:    "def f(xs):\n    return xs[2:]\n",
		},
		{
			name: "full slice and index",
			a:    "def f(xs):\n    return xs[:]\n",
			b:    "def f(xs, i):\n    return xs[i]\n",
		},
		{
			name: "trailing comma subscript",
			a:    "def f(xs, i):\n    return xs[i]\n",
			b:    "def f(xs, i):\n    return xs[i,]\n",
		},
		{
			name: "multi index and single",
			a:    "def f(m, i, j):\n    return m[i, j]\n",
			b:    "def f(m, i, j):\n    return m[i][j]\n",
		},
		{
			name: "relative import depth",
			a:    "def f():\n    from . import util\n    return util\n",
			b:    "def f():\n    from .. import util\n    return util\n",
		},
		{
			name: "trailing comma return",
			a:    "def f(x):\n    return x,\n",
			b:    "def f(x):\n    return x\n",
		},
		{
			name: "byte docstring kept",
			a:    "def f():\n    b'not a docstring'\n    return 1\n",
			b:    "def f():\n    return 1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, CanonicalizeSource(tt.a).Dump, CanonicalizeSource(tt.b).Dump)
		})
	}
}

func TestCanonicalize_Fallback(t *testing.T) {
	src := "    def broken(:\n        pass\n"
	got := CanonicalizeSource(src)

	assert.Equal(t, 0, got.Nodes)
	assert.Equal(t, "def broken(:\n    pass", got.Dump)
}

func TestCanonicalize_PlaceholdersInDump(t *testing.T) {
	got := CanonicalizeSource("def greet(name, loud=False):\n    return print(name, end='!')\n")

	assert.Contains(t, got.Dump, `"FUNC"`)
	assert.Contains(t, got.Dump, `"ID"`)
	assert.Contains(t, got.Dump, `"KW"`)
	assert.Contains(t, got.Dump, `"STR"`)
	assert.Contains(t, got.Dump, `"False"`)
	assert.NotContains(t, got.Dump, "greet")
	assert.NotContains(t, got.Dump, "loud")
}

func TestCanonicalize_Deterministic(t *testing.T) {
	src := "def f(xs):\n    return [x * 2 for x in xs if x > 0]\n"
	first := CanonicalizeSource(src)
	for range 3 {
		assert.Equal(t, first, CanonicalizeSource(src))
	}
}

func TestCanonicalizer_Memoizes(t *testing.T) {
	p := parser.New()
	defer p.Close()
	c := NewCanonicalizer(p)

	src := "def f(a):\n    return a\n"
	first := c.Canonicalize(src)
	second := c.Canonicalize(src)

	require.Len(t, c.memo, 1)
	assert.Equal(t, first, second)

	c.Canonicalize("def g(b):\n    return b\n")
	assert.Len(t, c.memo, 2)
}

func TestCanonicalizer_MemoIgnoresForeignEntry(t *testing.T) {
	p := parser.New()
	defer p.Close()
	c := NewCanonicalizer(p)

	src := "def f(a):\n    return a + 1\n"
	want := c.Canonicalize(src)

	// Simulate a hash collision with a different source under the same key.
	for h := range c.memo {
		c.memo[h] = memoEntry{source: "other", form: Canonical{Dump: "bogus", Nodes: 1}}
	}

	assert.Equal(t, want, c.Canonicalize(src))
}

func TestCanonicalize_SliceSlots(t *testing.T) {
	got := CanonicalizeSource("def f(xs):\n    return xs[::2]\n")

	assert.Contains(t, got.Dump, `slice(lower="<empty>" upper="<empty>" step=number:"0")`)
}
