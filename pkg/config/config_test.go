package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if cfg.Similarity.Strategy != "" {
		t.Errorf("Similarity.Strategy = %q, want empty (command default applies)", cfg.Similarity.Strategy)
	}
	if cfg.Similarity.Threshold != 1.0 {
		t.Errorf("Similarity.Threshold = %f, want 1.0", cfg.Similarity.Threshold)
	}
	if cfg.Similarity.IncludeInit {
		t.Error("Similarity.IncludeInit should be false by default")
	}
	if cfg.Similarity.SkipTrivial {
		t.Error("Similarity.SkipTrivial should be false by default")
	}
	if cfg.Similarity.MinNodes != 0 {
		t.Errorf("Similarity.MinNodes = %d, want 0", cfg.Similarity.MinNodes)
	}
	if !cfg.Similarity.PrintMembers {
		t.Error("Similarity.PrintMembers should be true by default")
	}

	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be true by default")
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("Exclude.Dirs should have default values")
	}

	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if !cfg.Output.Color {
		t.Error("Output.Color should be true by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "locus.toml")

	content := `
[similarity]
strategy = "ast"
include_init = true
min_nodes = 12

[exclude]
dirs = ["vendor", "custom_exclude"]
patterns = ["test_*.py"]

[output]
format = "json"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Similarity.Strategy != "ast" {
		t.Errorf("Similarity.Strategy = %q, want ast", cfg.Similarity.Strategy)
	}
	if !cfg.Similarity.IncludeInit {
		t.Error("Similarity.IncludeInit should be true")
	}
	if cfg.Similarity.MinNodes != 12 {
		t.Errorf("Similarity.MinNodes = %d, want 12", cfg.Similarity.MinNodes)
	}
	// Unset keys keep their defaults.
	if cfg.Similarity.Threshold != 1.0 {
		t.Errorf("Similarity.Threshold = %f, want 1.0", cfg.Similarity.Threshold)
	}
	if !slices.Contains(cfg.Exclude.Dirs, "custom_exclude") {
		t.Errorf("Exclude.Dirs = %v, want custom_exclude included", cfg.Exclude.Dirs)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "locus.yaml")

	content := `
similarity:
  strategy: exact
  skip_trivial: true
output:
  verbose: true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Similarity.Strategy != "exact" {
		t.Errorf("Similarity.Strategy = %q, want exact", cfg.Similarity.Strategy)
	}
	if !cfg.Similarity.SkipTrivial {
		t.Error("Similarity.SkipTrivial should be true")
	}
	if !cfg.Output.Verbose {
		t.Error("Output.Verbose should be true")
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "locus.json")

	content := `{"similarity": {"max_candidates": 50}, "exclude": {"gitignore": false}}`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Similarity.MaxCandidates != 50 {
		t.Errorf("Similarity.MaxCandidates = %d, want 50", cfg.Similarity.MaxCandidates)
	}
	if cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be false")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/locus.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "locus.toml")

	if err := os.WriteFile(configPath, []byte("[similarity\nstrategy = "), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should return error for invalid TOML")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	result, err := LoadConfig(WithSearchDirs(t.TempDir()))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if result.Source != "" {
		t.Errorf("Source = %q, want empty", result.Source)
	}
	if result.Config == nil {
		t.Fatal("Config should not be nil")
	}
}

func TestLoadConfig_SearchesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	hidden := filepath.Join(tmpDir, ".locus")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	configPath := filepath.Join(hidden, "locus.toml")
	if err := os.WriteFile(configPath, []byte("[similarity]\nstrategy = \"ast\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	result, err := LoadConfig(WithSearchDirs(tmpDir, hidden))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if result.Source != configPath {
		t.Errorf("Source = %q, want %q", result.Source, configPath)
	}
	if result.Config.Similarity.Strategy != "ast" {
		t.Errorf("Similarity.Strategy = %q, want ast", result.Config.Similarity.Strategy)
	}
}

func TestLoadConfig_ExplicitPathMustExist(t *testing.T) {
	_, err := LoadConfig(WithPath(filepath.Join(t.TempDir(), "missing.toml")))
	if err == nil {
		t.Error("LoadConfig() should fail for a missing explicit path")
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "locus.toml")
	content := "[similarity]\nstrategy = \"fuzzy\"\nmin_nodes = -1\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfig(WithPath(configPath))
	if err == nil {
		t.Fatal("LoadConfig() should reject an invalid config")
	}
	msg := err.Error()
	if !strings.Contains(msg, "similarity.strategy") || !strings.Contains(msg, "similarity.min_nodes") {
		t.Errorf("error should name every invalid key, got %q", msg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ast strategy", func(c *Config) { c.Similarity.Strategy = "ast" }, false},
		{"unknown strategy", func(c *Config) { c.Similarity.Strategy = "minhash" }, true},
		{"threshold above one", func(c *Config) { c.Similarity.Threshold = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.Similarity.Threshold = -0.1 }, true},
		{"negative max candidates", func(c *Config) { c.Similarity.MaxCandidates = -1 }, true},
		{"negative min nodes", func(c *Config) { c.Similarity.MinNodes = -3 }, true},
		{"negative max file size", func(c *Config) { c.Exclude.MaxFileSize = -1 }, true},
		{"toon format", func(c *Config) { c.Output.Format = "toon" }, false},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = []string{"test_*.py", "*_pb2.py"}

	tests := []struct {
		path string
		want bool
	}{
		{"src/app.py", false},
		{"src/__pycache__/app.py", true},
		{".venv/lib/site.py", true},
		{"pkg/build/gen.py", true},
		{"pkg/build_utils.py", false},
		{"tests/test_app.py", true},
		{"proto/msg_pb2.py", true},
		{"tests/conftest.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := cfg.ShouldExclude(tt.path); got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
