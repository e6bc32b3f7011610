package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the server configuration read from the environment
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	GinMode     string `env:"GIN_MODE" envDefault:"debug"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL"`
	JWTSecret   string `env:"JWT_SECRET"`

	CORSAllowAll bool `env:"CORS_ALLOW_ALL" envDefault:"false"`

	ArchiveBucket          string `env:"ARCHIVE_BUCKET"`
	ArchiveEndpoint        string `env:"ARCHIVE_ENDPOINT"`
	ArchiveRegion          string `env:"ARCHIVE_REGION" envDefault:"auto"`
	ArchiveAccessKeyID     string `env:"ARCHIVE_ACCESS_KEY_ID"`
	ArchiveSecretAccessKey string `env:"ARCHIVE_SECRET_ACCESS_KEY"`

	CatalogCacheTTL      time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	WriteRateLimitPerMin int           `env:"WRITE_RATE_LIMIT_PER_MIN" envDefault:"120"`
}

// ArchiveEnabled reports whether closed periods should be archived
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		log.Printf("📄 [CONFIG] Loaded %s", f)
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.WriteRateLimitPerMin < 0 {
		return nil, fmt.Errorf("WRITE_RATE_LIMIT_PER_MIN cannot be negative")
	}
	return &cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
