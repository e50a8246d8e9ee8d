package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.SkipFactor != 6 {
		t.Errorf("SkipFactor = %d, want 6", cfg.SkipFactor)
	}
	if cfg.StoreDSN != ":memory:" {
		t.Errorf("StoreDSN = %q, want in-memory", cfg.StoreDSN)
	}
}

func TestDefault_TranslatesWithModel(t *testing.T) {
	cfg := Default()
	if !cfg.ModelBacked() {
		t.Errorf("default backend %q does not use the seq2seq model", cfg.TranslatorBackend)
	}
	if cfg.TranslatorBackend == BackendGRPC && !cfg.TranslatorSpawn {
		t.Error("grpc is the default but nothing starts the service")
	}
	if cfg.NumBeams != 5 {
		t.Errorf("NumBeams = %d, want 5", cfg.NumBeams)
	}

	cfg.TranslatorBackend = BackendPhrasebook
	if cfg.ModelBacked() {
		t.Error("phrasebook reported as model backed")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("SKIP_FACTOR", "3")
	t.Setenv("TRANSLATOR_BACKEND", "GRPC")
	t.Setenv("TRANSLATOR_TIMEOUT", "5s")
	t.Setenv("PACE_FILES", "false")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("TRANSLATOR_SPAWN", "false")

	cfg := FromEnv()

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SkipFactor != 3 {
		t.Errorf("SkipFactor = %d", cfg.SkipFactor)
	}
	if cfg.TranslatorBackend != BackendGRPC {
		t.Errorf("TranslatorBackend = %q", cfg.TranslatorBackend)
	}
	if cfg.TranslatorTimeout != 5*time.Second {
		t.Errorf("TranslatorTimeout = %v", cfg.TranslatorTimeout)
	}
	if cfg.PaceFiles {
		t.Error("PaceFiles should be false")
	}
	if cfg.MaxUploadBytes != 1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.TranslatorSpawn {
		t.Error("TranslatorSpawn should be false")
	}
}

func TestFromEnv_BadNumberKeepsDefault(t *testing.T) {
	t.Setenv("SKIP_FACTOR", "six")
	if got := FromEnv().SkipFactor; got != 6 {
		t.Errorf("SkipFactor = %d, want default 6", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero skip", func(c *Config) { c.SkipFactor = 0 }, "SKIP_FACTOR"},
		{"zero window", func(c *Config) { c.WindowFrames = 0 }, "WINDOW_FRAMES"},
		{"no error budget", func(c *Config) { c.MaxConsecutiveErrors = 0 }, "MAX_CONSECUTIVE_ERRORS"},
		{"jpeg quality", func(c *Config) { c.JPEGQuality = 101 }, "JPEG_QUALITY"},
		{"backend", func(c *Config) { c.TranslatorBackend = "carrier-pigeon" }, "TRANSLATOR_BACKEND"},
		{"beams", func(c *Config) { c.NumBeams = 0 }, "NUM_BEAMS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}
