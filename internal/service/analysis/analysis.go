package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/panbanda/locus/internal/fileproc"
	"github.com/panbanda/locus/internal/scanner"
	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/parser"
	"github.com/panbanda/locus/pkg/similarity"
	"github.com/panbanda/locus/pkg/source"
)

// Service orchestrates scanning, loading, and duplicate detection.
type Service struct {
	config *config.Config
	source source.ContentSource
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithSource sets where file contents are read from (for testing).
func WithSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{
		source: source.NewFilesystem(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// ScanOptions narrows which files a scan returns.
type ScanOptions struct {
	Include []string
	Exclude []string
}

// Selection is the set of files chosen by a scan.
type Selection struct {
	Root  string
	Files []string
	// Oversized counts files dropped by exclude.max_file_size.
	Oversized int
}

// Scan resolves targets to Python modules.
func (s *Service) Scan(targets []string, opts ScanOptions) (*Selection, error) {
	scan := scanner.NewScanner(s.config,
		scanner.WithInclude(opts.Include...),
		scanner.WithExclude(opts.Exclude...),
	)
	res, err := scan.ScanPaths(targets)
	if err != nil {
		return nil, err
	}
	files, oversized := scanner.FilterBySize(res.Files, s.config.Exclude.MaxFileSize)
	return &Selection{Root: res.Root, Files: files, Oversized: oversized}, nil
}

// ReadOptions configures file loading.
type ReadOptions struct {
	OnProgress func()
	OnError    func(path string, err error)
}

// Workspace is a loaded set of files ready for analysis.
type Workspace struct {
	Root  string
	Files []source.File
	// Errors holds unreadable files; nil when every file was read.
	Errors *fileproc.ProcessingErrors
}

// Read loads the selected files concurrently, keeping selection order.
func (s *Service) Read(ctx context.Context, sel *Selection, opts ReadOptions) *Workspace {
	errs := &fileproc.ProcessingErrors{}
	onError := func(path string, err error) {
		errs.Add(path, err)
		if opts.OnError != nil {
			opts.OnError(path, err)
		}
	}

	files := fileproc.LoadFiles(ctx, sel.Files, sel.Root, s.source, opts.OnProgress, onError)
	ws := &Workspace{Root: sel.Root, Files: files}
	if errs.HasErrors() {
		ws.Errors = errs
	}
	return ws
}

// Load scans targets and reads every selected file.
func (s *Service) Load(ctx context.Context, targets []string, scan ScanOptions, read ReadOptions) (*Workspace, error) {
	sel, err := s.Scan(targets, scan)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, sel, read), nil
}

// SimilarityConfig returns the engine config derived from the
// [similarity] section.
func (s *Service) SimilarityConfig() similarity.Config {
	return similarity.New(similarity.WithConfig(s.config.Similarity)).Config()
}

// FindDuplicates groups duplicate functions across the workspace.
func (s *Service) FindDuplicates(ws *Workspace, cfg similarity.Config) (*similarity.Result, error) {
	res, err := similarity.Run(ws.Files, cfg)
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}
	return res, nil
}

// FileStat summarizes one loaded file.
type FileStat struct {
	RelPath string `json:"rel_path"`
	Lines   int    `json:"lines"`
	Bytes   int    `json:"bytes"`
	Units   int    `json:"units"`
	// ParseError is set when the module does not parse; Units is then 0.
	ParseError bool `json:"parse_error,omitempty"`
}

// Inventory counts lines and functions per file, in workspace order.
func (s *Service) Inventory(ctx context.Context, ws *Workspace) ([]FileStat, error) {
	stats, errs := fileproc.MapFiles(ctx, ws.Files, func(psr *parser.Parser, f source.File) (FileStat, error) {
		stat := FileStat{
			RelPath: f.RelPath,
			Lines:   countLines(f.Content),
			Bytes:   len(f.Content),
		}
		if len(f.Content) == 0 {
			return stat, nil
		}

		tree, err := psr.ParsePython(f.Content, f.Path)
		if err != nil {
			return stat, err
		}
		defer tree.Close()
		if tree.HasError() {
			stat.ParseError = true
			return stat, nil
		}
		stat.Units = len(parser.FindNodesByType(tree.Root(), "function_definition"))
		return stat, nil
	})
	if errs.HasErrors() {
		return stats, errs
	}
	return stats, nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
