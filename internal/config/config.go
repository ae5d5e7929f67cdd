package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Extraction backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

type Config struct {
	Port string

	// Auth
	ProofAPIKey string

	// Extraction service
	ExtractBackend string
	ExtractURL     string
	ExtractAPIKey  string
	ExtractTimeout time.Duration

	// Output documents and uploads
	ArtifactDir string

	// Worker pool
	WorkerCount   int
	MaxQueueSize  int
	LocateWorkers int

	// Upload and connection limits
	MaxUploadBytes int64
	MaxConnections int

	// Job state
	JobTTL time.Duration

	// Display
	DisplayWidth     int
	DisplayHeight    int
	HighlightDefault bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		ProofAPIKey: os.Getenv("PROOF_API_KEY"),

		ExtractBackend: envOr("EXTRACT_BACKEND", BackendRemote),
		ExtractURL:     envOr("EXTRACT_URL", "http://localhost:7670"),
		ExtractAPIKey:  os.Getenv("EXTRACT_API_KEY"),
		ExtractTimeout: envDuration("EXTRACT_TIMEOUT", 60*time.Second),

		ArtifactDir: envOr("ARTIFACT_DIR", "./artifacts"),

		WorkerCount:   envInt("WORKER_COUNT", 2),
		MaxQueueSize:  envInt("MAX_QUEUE_SIZE", 50),
		LocateWorkers: envInt("LOCATE_WORKERS", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		MaxConnections: envInt("MAX_CONNECTIONS", 256),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		DisplayWidth:     envInt("DISPLAY_WIDTH", 800),
		DisplayHeight:    envInt("DISPLAY_HEIGHT", 600),
		HighlightDefault: envBool("HIGHLIGHT_DEFAULT", true),
	}

	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 60 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.LocateWorkers <= 0 {
		cfg.LocateWorkers = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 256
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.DisplayWidth <= 0 {
		cfg.DisplayWidth = 800
	}
	if cfg.DisplayHeight <= 0 {
		cfg.DisplayHeight = 600
	}

	return cfg
}

// Validate checks settings the server cannot run without.
func (c Config) Validate() error {
	if c.ProofAPIKey == "" {
		return fmt.Errorf("PROOF_API_KEY is required")
	}
	return c.ValidateExtract()
}

// ValidateExtract checks only the extraction settings, for the CLI.
func (c Config) ValidateExtract() error {
	switch c.ExtractBackend {
	case BackendLocal:
		return nil
	case BackendRemote:
		if c.ExtractURL == "" {
			return fmt.Errorf("EXTRACT_URL is required for the remote backend")
		}
		return nil
	default:
		return fmt.Errorf("EXTRACT_BACKEND must be %q or %q, got %q", BackendRemote, BackendLocal, c.ExtractBackend)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
