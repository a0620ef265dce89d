package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/locus/internal/testutil"
	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/similarity"
	"github.com/panbanda/locus/pkg/source"
)

const dupA = `def total(items):
    acc = 0
    for item in items:
        acc += item
    return acc
`

const dupB = `def summed(values):
    result = 0
    for v in values:
        result += v
    return result


class Box:
    def __init__(self):
        self.items = []
`

func newService() *Service {
	return New(WithConfig(config.DefaultConfig()))
}

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	svc := New(WithConfig(cfg))
	assert.Same(t, cfg, svc.Config())
	assert.NotNil(t, svc.source)

	mem := source.NewMemory(nil)
	assert.Same(t, mem, New(WithConfig(cfg), WithSource(mem)).source)
}

func TestLoad(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.py":          dupA,
		"pkg/b.py":      dupB,
		"notes.txt":     "not python",
		"venv/lib.py":   dupA,
		"pkg/empty.py":  "",
		"build/skip.py": dupA,
	})

	ws, err := newService().Load(context.Background(), []string{dir}, ScanOptions{}, ReadOptions{})
	require.NoError(t, err)
	assert.Nil(t, ws.Errors)
	assert.Equal(t, dir, ws.Root)

	var rels []string
	for _, f := range ws.Files {
		rels = append(rels, f.RelPath)
	}
	assert.Equal(t, []string{"a.py", "pkg/b.py", "pkg/empty.py"}, rels)
	assert.Equal(t, dupA, string(ws.Files[0].Content))
}

func TestScan_IncludeExclude(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.py":            dupA,
		"pkg/b.py":        dupB,
		"pkg/test_b.py":   dupB,
		"tests/test_a.py": dupA,
		"pkg/sub/deep.py": dupA,
	})

	sel, err := newService().Scan([]string{dir}, ScanOptions{Include: []string{"pkg/"}, Exclude: []string{"test_*.py"}})
	require.NoError(t, err)
	require.Len(t, sel.Files, 2)
	assert.Equal(t, filepath.Join(dir, "pkg", "b.py"), sel.Files[0])
	assert.Equal(t, filepath.Join(dir, "pkg", "sub", "deep.py"), sel.Files[1])
}

func TestScan_MaxFileSize(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"small.py": "x = 1\n",
		"large.py": dupB,
	})
	cfg := config.DefaultConfig()
	cfg.Exclude.MaxFileSize = 10

	sel, err := New(WithConfig(cfg)).Scan([]string{dir}, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "small.py")}, sel.Files)
	assert.Equal(t, 1, sel.Oversized)
}

func TestScan_MissingTarget(t *testing.T) {
	_, err := newService().Scan([]string{filepath.Join(t.TempDir(), "nope")}, ScanOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRead_ReportsUnreadableFiles(t *testing.T) {
	mem := source.NewMemory(map[string]string{"/src/a.py": dupA})
	svc := New(WithConfig(config.DefaultConfig()), WithSource(mem))

	var (
		mu     sync.Mutex
		failed []string
		ticks  int
	)
	ws := svc.Read(context.Background(), &Selection{
		Root:  "/src",
		Files: []string{"/src/a.py", "/src/gone.py"},
	}, ReadOptions{
		OnProgress: func() {
			mu.Lock()
			ticks++
			mu.Unlock()
		},
		OnError: func(path string, _ error) {
			mu.Lock()
			failed = append(failed, path)
			mu.Unlock()
		},
	})

	require.Len(t, ws.Files, 1)
	assert.Equal(t, "a.py", ws.Files[0].RelPath)
	assert.Equal(t, []string{"/src/gone.py"}, failed)
	require.NotNil(t, ws.Errors)
	assert.Len(t, ws.Errors.Errors, 1)
	assert.Equal(t, 2, ticks)
}

func TestFindDuplicates(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{"a.py": dupA, "b.py": dupB})
	svc := newService()

	ws, err := svc.Load(context.Background(), []string{dir}, ScanOptions{}, ReadOptions{})
	require.NoError(t, err)

	exact, err := svc.FindDuplicates(ws, similarity.Config{Strategy: similarity.StrategyExact})
	require.NoError(t, err)
	assert.Empty(t, exact.Clusters)

	ast, err := svc.FindDuplicates(ws, similarity.Config{Strategy: similarity.StrategyAST})
	require.NoError(t, err)
	require.Len(t, ast.Clusters, 1)

	var names []string
	for _, id := range ast.Clusters[0].Members {
		u, ok := ast.Unit(id)
		require.True(t, ok)
		names = append(names, u.Qualname)
	}
	assert.Equal(t, []string{"total", "summed"}, names)
}

func TestSimilarityConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Similarity.Strategy = "ast"
	cfg.Similarity.IncludeInit = true
	cfg.Similarity.MinNodes = 4

	got := New(WithConfig(cfg)).SimilarityConfig()
	assert.Equal(t, similarity.StrategyAST, got.Strategy)
	assert.True(t, got.IncludeInit)
	assert.Equal(t, 4, got.MinNodes)
}

func TestInventory(t *testing.T) {
	dir := testutil.WriteTree(t, map[string]string{
		"a.py":      dupA,
		"b.py":      dupB,
		"broken.py": "def broken(:\n    pass\n",
		"empty.py":  "",
	})
	svc := newService()

	ws, err := svc.Load(context.Background(), []string{dir}, ScanOptions{}, ReadOptions{})
	require.NoError(t, err)

	stats, err := svc.Inventory(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, stats, 4)

	byPath := make(map[string]FileStat, len(stats))
	for _, s := range stats {
		byPath[s.RelPath] = s
	}
	assert.Equal(t, FileStat{RelPath: "a.py", Lines: 5, Bytes: len(dupA), Units: 1}, byPath["a.py"])
	assert.Equal(t, 2, byPath["b.py"].Units)
	assert.True(t, byPath["broken.py"].ParseError)
	assert.Zero(t, byPath["broken.py"].Units)
	assert.Equal(t, FileStat{RelPath: "empty.py"}, byPath["empty.py"])
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"x", 1},
		{"x\n", 1},
		{"x\ny", 2},
		{"x\ny\n\n", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, countLines([]byte(tt.in)), "%q", tt.in)
	}
}

func TestFileTable(t *testing.T) {
	table := FileTable([]FileStat{
		{RelPath: "a.py", Lines: 5, Bytes: 80, Units: 1},
		{RelPath: "bad.py", Lines: 2, Bytes: 20, ParseError: true},
	})

	assert.Equal(t, []string{"a.py", "5", "80", "1"}, table.Rows[0])
	assert.Equal(t, []string{"bad.py", "2", "20", "parse error"}, table.Rows[1])
	assert.Equal(t, []string{"2 files", "7", "100", "1"}, table.Footer)

	data, err := json.Marshal(table.RenderData())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"totals":{"files":2,"lines":7,"bytes":100,"units":1,"parse_errors":1}`)
}

func TestInventory_CountsEveryDefinition(t *testing.T) {
	src := `@cache
def outer(x):
    def inner(y):
        return y
    return inner(x)


class Client:
    async def fetch(self, url):
        return url
`
	dir := testutil.WriteTree(t, map[string]string{"mod.py": src})
	svc := newService()

	ws, err := svc.Load(context.Background(), []string{dir}, ScanOptions{}, ReadOptions{})
	require.NoError(t, err)

	stats, err := svc.Inventory(context.Background(), ws)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	res, err := svc.FindDuplicates(ws, similarity.Config{Strategy: similarity.StrategyExact, IncludeInit: true})
	require.NoError(t, err)
	assert.Equal(t, 3, stats[0].Units)
	assert.Len(t, res.Units, stats[0].Units)
}
