// Package config gathers every setting of the service from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Lllllllleong/asodocumentflow/internal/extract"
	"github.com/Lllllllleong/asodocumentflow/internal/gcp"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer-token checks.
	APIKey string

	// Upload limits
	MaxUploadBytes int64

	// AI extraction
	Extract extract.Config

	// Naming fan-out
	Pipeline services.PipelineConfig

	// Inbox processing
	ProjectID         string
	OutputBucket      string
	CollectionName    string
	WorkflowID        string
	WorkflowLocation  string
	UploadConcurrency int
	InboxStaleAfter   time.Duration
}

func Load() Config {
	projectID := gcp.GetEnv("PROJECT_ID", "")

	cfg := Config{
		Port: gcp.GetEnv("PORT", "8080"),

		APIKey: gcp.GetEnv("ASO_API_KEY", ""),

		MaxUploadBytes: int64(gcp.GetEnvInt("MAX_UPLOAD_BYTES", 52428800)), // 50MB

		Extract: extract.Config{
			Backend:       gcp.GetEnv("EXTRACTOR_BACKEND", extract.BackendAuto),
			APIKey:        gcp.GetEnv("GOOGLE_API_KEY", ""),
			ProjectID:     projectID,
			Region:        gcp.GetEnv("VERTEX_REGION", "us-central1"),
			Model:         gcp.GetEnv("GEMINI_MODEL", gcp.DefaultModel),
			RatePerMinute: gcp.GetEnvInt("EXTRACT_RATE_PER_MINUTE", 60),
		},

		Pipeline: services.PipelineConfig{
			Concurrency:    gcp.GetEnvInt("EXTRACT_CONCURRENCY", 4),
			ExtractTimeout: gcp.GetEnvDuration("EXTRACT_TIMEOUT", 60*time.Second),
		},

		ProjectID:         projectID,
		OutputBucket:      gcp.GetEnv("OUTPUT_BUCKET", ""),
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "aso-jobs"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		UploadConcurrency: gcp.GetEnvInt("UPLOAD_CONCURRENCY", 10),
		InboxStaleAfter:   gcp.GetEnvDuration("INBOX_STALE_AFTER", 15*time.Minute),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.Pipeline.Concurrency <= 0 {
		cfg.Pipeline.Concurrency = 4
	}
	if cfg.Pipeline.ExtractTimeout <= 0 {
		cfg.Pipeline.ExtractTimeout = 60 * time.Second
	}
	if cfg.Extract.RatePerMinute < 0 {
		cfg.Extract.RatePerMinute = 0
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 10
	}

	return cfg
}

// LoadDotEnv reads a .env file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ValidateInbox checks the settings the inbox processor cannot run without.
func (c Config) ValidateInbox() error {
	if c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.OutputBucket == "" {
		return fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	return nil
}
