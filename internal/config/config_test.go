package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/larp")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.CatalogCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %v", cfg.CatalogCacheTTL)
	}
	if cfg.WriteRateLimitPerMin != 120 {
		t.Fatalf("expected 120 writes per minute, got %d", cfg.WriteRateLimitPerMin)
	}
	if cfg.ArchiveEnabled() {
		t.Fatal("expected archive disabled without bucket")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/larp")
	t.Setenv("ARCHIVE_BUCKET", "")
	os.Unsetenv("ARCHIVE_BUCKET")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("ARCHIVE_BUCKET=downtime-archive\nCATALOG_CACHE_TTL=30s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("ARCHIVE_BUCKET")
		os.Unsetenv("CATALOG_CACHE_TTL")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.ArchiveEnabled() || cfg.ArchiveBucket != "downtime-archive" {
		t.Fatalf("expected archive bucket from file, got %q", cfg.ArchiveBucket)
	}
	if cfg.CatalogCacheTTL != 30*time.Second {
		t.Fatalf("expected 30s ttl, got %v", cfg.CatalogCacheTTL)
	}
}

func TestLoadRejectsNegativeRateLimit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/larp")
	t.Setenv("WRITE_RATE_LIMIT_PER_MIN", "-1")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for negative rate limit")
	}
}
