package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for locus.
type Config struct {
	// Duplicate detection settings
	Similarity SimilarityConfig `koanf:"similarity" toml:"similarity"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// SimilarityConfig controls duplicate function detection.
type SimilarityConfig struct {
	Strategy      string  `koanf:"strategy" toml:"strategy"` // exact, ast
	Threshold     float64 `koanf:"threshold" toml:"threshold"`
	MaxCandidates int     `koanf:"max_candidates" toml:"max_candidates"`
	IncludeInit   bool    `koanf:"include_init" toml:"include_init"`
	SkipTrivial   bool    `koanf:"skip_trivial" toml:"skip_trivial"`
	MinNodes      int     `koanf:"min_nodes" toml:"min_nodes"`
	PrintMembers  bool    `koanf:"print_members" toml:"print_members"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns    []string `koanf:"patterns" toml:"patterns"`
	Dirs        []string `koanf:"dirs" toml:"dirs"`
	Gitignore   bool     `koanf:"gitignore" toml:"gitignore"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

var validStrategies = map[string]bool{"exact": true, "ast": true}

var validFormats = map[string]bool{"text": true, "json": true, "markdown": true, "toon": true}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			Strategy:     "",
			Threshold:    1.0,
			PrintMembers: true,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				".git",
				".hg",
				".locus",
				".mypy_cache",
				".pytest_cache",
				".tox",
				".venv",
				"venv",
				"__pycache__",
				"node_modules",
				"build",
				"dist",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadResult is a loaded configuration and the file it came from.
// Source is empty when defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
	dirs []string
}

// WithPath loads the given file instead of searching standard locations.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithSearchDirs overrides the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) {
		o.dirs = dirs
	}
}

// configNames are the file names searched for, in priority order.
var configNames = []string{
	"locus.toml",
	"locus.yaml",
	"locus.yml",
	"locus.json",
	".locus.toml",
	".locus.yaml",
	".locus.yml",
	".locus.json",
}

// LoadConfig loads and validates configuration. An explicit path must
// exist; otherwise the first config file found in the search directories
// is used, falling back to defaults.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dirs: []string{".", ".locus"}}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = findConfig(o.dirs)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

func findConfig(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if s := c.Similarity.Strategy; s != "" && !validStrategies[s] {
		errs = append(errs, fmt.Errorf("similarity.strategy: unknown strategy %q (want exact or ast)", s))
	}
	if t := c.Similarity.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("similarity.threshold: %v is outside [0, 1]", t))
	}
	if c.Similarity.MaxCandidates < 0 {
		errs = append(errs, fmt.Errorf("similarity.max_candidates: must not be negative"))
	}
	if c.Similarity.MinNodes < 0 {
		errs = append(errs, fmt.Errorf("similarity.min_nodes: must not be negative"))
	}
	if c.Exclude.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("exclude.max_file_size: must not be negative"))
	}
	if f := c.Output.Format; f != "" && !validFormats[f] {
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", f))
	}

	return errors.Join(errs...)
}

// ShouldExclude checks if a path should be excluded from analysis.
// Paths are matched with forward or OS separators.
func (c *Config) ShouldExclude(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, part := range strings.Split(slashed, "/") {
		for _, dir := range c.Exclude.Dirs {
			if part == dir {
				return true
			}
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
