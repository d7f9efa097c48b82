// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendBadger   = "badger"
	BackendPgvector = "pgvector"
)

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingAPIKey is returned when the server has no pre-shared key.
	ErrMissingAPIKey = errors.New("APP_API_KEY not set")
)

// Config holds process settings read from the environment.
type Config struct {
	Environment string

	// APIKey is the pre-shared key clients send in the x-api-key header.
	APIKey     string
	ListenAddr string

	// PipelineDir receives the persisted pipeline definitions.
	PipelineDir string

	StoreBackend string
	// StorePath is the badger directory. Empty keeps the store in memory.
	StorePath   string
	DatabaseURL string

	EmbedBatchSize int
	EmbedWorkers   int

	CORSOrigins []string
	MaxUploadMB int

	ArchiveBucket   string
	ArchiveEndpoint string
	AWSRegion       string
	AWSAccessKey    string
	AWSSecretKey    string
}

// Load reads files into the environment and returns the resulting Config.
// Variables already set take precedence over file values. With no files,
// .env is read, or .env.test when ENVIRONMENT=test; a missing default file
// is not an error.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load(defaultEnvFile())
	}
	return FromEnv(), nil
}

func defaultEnvFile() string {
	if os.Getenv("ENVIRONMENT") == "test" {
		return ".env.test"
	}
	return ".env"
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		APIKey:          getEnv("APP_API_KEY", ""),
		ListenAddr:      getEnv("LISTEN_ADDR", ":8000"),
		PipelineDir:     getEnv("PIPELINE_DIR", "."),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendBadger)),
		StorePath:       getEnv("STORE_PATH", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		EmbedBatchSize:  getEnvInt("EMBED_BATCH_SIZE", 32),
		EmbedWorkers:    getEnvInt("EMBED_WORKERS", 4),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:8501")),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", 50),
		ArchiveBucket:   getEnv("ARCHIVE_BUCKET", ""),
		ArchiveEndpoint: getEnv("ARCHIVE_ENDPOINT", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-2"),
		AWSAccessKey:    getEnv("AWS_ACCESS_KEY", ""),
		AWSSecretKey:    getEnv("AWS_SECRET_KEY", ""),
	}
}

// Validate checks settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case BackendBadger:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q is not one of %s, %s", c.StoreBackend, BackendBadger, BackendPgvector))
	}
	if c.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize))
	}
	if c.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("EMBED_WORKERS must be positive, got %d", c.EmbedWorkers))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ValidateServer additionally requires the pre-shared API key.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ArchiveEnabled reports whether uploads are archived.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("environment value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
