package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "EXTRACT_BACKEND", "EXTRACT_TIMEOUT", "WORKER_COUNT", "DISPLAY_WIDTH", "HIGHLIGHT_DEFAULT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %s", cfg.Port)
	}
	if cfg.ExtractBackend != BackendRemote {
		t.Errorf("expected remote backend, got %s", cfg.ExtractBackend)
	}
	if cfg.ExtractTimeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", cfg.ExtractTimeout)
	}
	if cfg.DisplayWidth != 800 || cfg.DisplayHeight != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.DisplayWidth, cfg.DisplayHeight)
	}
	if !cfg.HighlightDefault {
		t.Error("expected highlighting on by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("EXTRACT_BACKEND", "local")
	t.Setenv("EXTRACT_TIMEOUT", "5s")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("HIGHLIGHT_DEFAULT", "false")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg := Load()
	if cfg.ExtractBackend != BackendLocal {
		t.Errorf("expected local backend, got %s", cfg.ExtractBackend)
	}
	if cfg.ExtractTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.ExtractTimeout)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("expected invalid worker count to fall back to 2, got %d", cfg.WorkerCount)
	}
	if cfg.HighlightDefault {
		t.Error("expected highlighting off")
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("expected 1024, got %d", cfg.MaxUploadBytes)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{ExtractBackend: BackendRemote, ExtractURL: "http://x"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing PROOF_API_KEY to fail")
	}
	cfg.ProofAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.ExtractBackend = "ftp"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown backend to fail")
	}
	local := Config{ExtractBackend: BackendLocal}
	if err := local.ValidateExtract(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
