package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/panbanda/locus/pkg/config"
	"github.com/panbanda/locus/pkg/parser"
)

// Scanner finds Python modules under a set of targets.
type Scanner struct {
	config  *config.Config
	include []string
	exclude []string

	excludeMatcher gitignore.Matcher
	includeMatcher gitignore.Matcher
	ignoreMatcher  gitignore.Matcher
	ignoreRoot     string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithInclude restricts directory scans to files matching at least one
// gitignore-style pattern.
func WithInclude(patterns ...string) Option {
	return func(s *Scanner) {
		s.include = append(s.include, patterns...)
	}
}

// WithExclude adds gitignore-style exclusion patterns to those from config.
func WithExclude(patterns ...string) Option {
	return func(s *Scanner) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PathError reports a scan target that cannot be used.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanResult is the outcome of ScanPaths.
// Root is the deepest directory containing every target; Files are
// absolute paths in lexical order.
type ScanResult struct {
	Root  string
	Files []string
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func parsePatterns(patterns []string) []gitignore.Pattern {
	parsed := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			parsed = append(parsed, gitignore.ParsePattern(p, nil))
		}
	}
	return parsed
}

// loadPatterns prepares matchers for a scan rooted at root. Config and
// option patterns are relative to root; .gitignore files are read from
// the enclosing git repository, or from root when there is none.
func (s *Scanner) loadPatterns(root string) {
	s.excludeMatcher, s.includeMatcher, s.ignoreMatcher = nil, nil, nil

	if patterns := parsePatterns(append(slices.Clone(s.config.Exclude.Patterns), s.exclude...)); len(patterns) > 0 {
		s.excludeMatcher = gitignore.NewMatcher(patterns)
	}
	if patterns := parsePatterns(s.include); len(patterns) > 0 {
		s.includeMatcher = gitignore.NewMatcher(patterns)
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	s.ignoreRoot = findGitRoot(root)
	if s.ignoreRoot == "" {
		s.ignoreRoot = root
	}
	if patterns, err := gitignore.ReadPatterns(osfs.New(s.ignoreRoot), nil); err == nil && len(patterns) > 0 {
		s.ignoreMatcher = gitignore.NewMatcher(patterns)
	}
}

func splitPath(rel string) []string {
	return strings.Split(filepath.ToSlash(rel), "/")
}

// isExcluded checks a path relative to the scan root.
func (s *Scanner) isExcluded(root, relPath string, isDir bool) bool {
	if s.config.ShouldExclude(relPath) {
		return true
	}
	parts := splitPath(relPath)
	if s.excludeMatcher != nil && s.excludeMatcher.Match(parts, isDir) {
		return true
	}
	if s.ignoreMatcher != nil {
		abs := filepath.Join(root, relPath)
		if rel, err := filepath.Rel(s.ignoreRoot, abs); err == nil && !strings.HasPrefix(rel, "..") {
			if s.ignoreMatcher.Match(splitPath(rel), isDir) {
				return true
			}
		}
	}
	return false
}

func (s *Scanner) isIncluded(relPath string) bool {
	return s.includeMatcher == nil || s.includeMatcher.Match(splitPath(relPath), false)
}

// ScanDir recursively scans a directory for Python modules.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	s.loadPatterns(root)
	files, err := s.walk(root, root)
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func (s *Scanner) walk(dir, root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			if info, err := os.Stat(resolved); err != nil || info.IsDir() {
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(root, relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !parser.IsPythonModule(path) || s.isExcluded(root, relPath, false) || !s.isIncluded(relPath) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// ScanPaths resolves targets to Python modules. Directories are walked;
// files are taken as given when they are .py modules. No targets means
// the current directory.
func (s *Scanner) ScanPaths(targets []string) (*ScanResult, error) {
	if len(targets) == 0 {
		targets = []string{"."}
	}

	abs := make([]string, 0, len(targets))
	dirs := make(map[string]bool, len(targets))
	for _, t := range targets {
		p, err := filepath.Abs(t)
		if err != nil {
			return nil, &PathError{Path: t, Err: err}
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, &PathError{Path: t, Err: err}
		}
		abs = append(abs, p)
		dirs[p] = info.IsDir()
	}

	root := commonRoot(abs, dirs)
	s.loadPatterns(root)

	seen := make(map[string]bool)
	var files []string
	for _, p := range abs {
		if !dirs[p] {
			if parser.IsPythonModule(p) && !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
			continue
		}
		found, err := s.walk(p, root)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	slices.Sort(files)

	return &ScanResult{Root: root, Files: files}, nil
}

// commonRoot returns the deepest directory containing every path.
func commonRoot(paths []string, isDir map[string]bool) string {
	var root string
	for i, p := range paths {
		dir := p
		if !isDir[p] {
			dir = filepath.Dir(p)
		}
		if i == 0 {
			root = dir
			continue
		}
		for !isWithinRoot(dir, root) {
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}
	return root
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	if root == string(filepath.Separator) {
		return strings.HasPrefix(absPath, root)
	}
	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	dir := filepath.Dir(path)
	s.loadPatterns(dir)
	if s.isExcluded(dir, filepath.Base(path), false) {
		return false, nil
	}

	return parser.IsPythonModule(path), nil
}

// FilterBySize filters files that exceed the configured maximum size.
// Returns the filtered list and the count of files that were skipped.
// If maxSize is 0, returns the original list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}

	return filtered, skipped
}

// IsNotExist reports whether err is a PathError for a missing target.
func IsNotExist(err error) bool {
	var pe *PathError
	return errors.As(err, &pe) && errors.Is(pe.Err, fs.ErrNotExist)
}
