package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(""))
	if err != nil {
		t.Fatalf("parse empty config: %v", err)
	}
	if cfg.Scores.Min != 1 || cfg.Scores.Max != 10 {
		t.Errorf("expected default score domain 1..10, got %d..%d", cfg.Scores.Min, cfg.Scores.Max)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected default log level INFO, got %s", cfg.Logging.Level)
	}
}

func TestParseEmbeddedDefault(t *testing.T) {
	if _, err := parse(DefaultConfigYAML); err != nil {
		t.Fatalf("embedded default config does not parse: %v", err)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := parse([]byte(`
output:
  data_dir: /srv/animemart
landing:
  dir: /srv/drop
scores:
  min: 0
  max: 5
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.GetDataDir() != "/srv/animemart" {
		t.Errorf("unexpected data dir: %s", cfg.GetDataDir())
	}
	if cfg.GetLandingDir() != "/srv/drop" {
		t.Errorf("unexpected landing dir: %s", cfg.GetLandingDir())
	}
	if cfg.Scores.Min != 0 || cfg.Scores.Max != 5 {
		t.Errorf("unexpected score domain: %d..%d", cfg.Scores.Min, cfg.Scores.Max)
	}
}

func TestParseRejectsInvertedScoreDomain(t *testing.T) {
	_, err := parse([]byte("scores:\n  min: 9\n  max: 3\n"))
	if err == nil {
		t.Fatal("expected error for min > max")
	}
	if !strings.Contains(err.Error(), "score domain") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := parse([]byte("output: [not a mapping")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLandingDirDefault(t *testing.T) {
	cfg, err := parse([]byte("output:\n  data_dir: /data\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetLandingDir(); got != filepath.Join("/data", "landing") {
		t.Errorf("expected landing under data dir, got %s", got)
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("scores:\n  min: 1\n  max: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("ResolveConfigPath: %v", err)
	}
	if resolved != path {
		t.Errorf("expected %s, got %s", path, resolved)
	}

	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit path")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: DEBUG\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("unexpected level: %s", cfg.Logging.Level)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
