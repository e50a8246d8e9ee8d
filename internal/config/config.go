// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Translator backends.
const (
	BackendGRPC       = "grpc"
	BackendExec       = "exec"
	BackendPhrasebook = "phrasebook"
)

// Config holds every tunable of the server.
type Config struct {
	HTTPAddr  string
	Env       string
	LogLevel  string
	LogFormat string
	LogFile   string

	CameraID       int
	UploadDir      string
	MaxUploadBytes int64

	SkipFactor           int
	WindowFrames         int
	MaxConsecutiveErrors int
	JPEGQuality          int
	StreamFPS            int
	// PaceFiles plays uploaded files back at their native frame rate.
	PaceFiles bool

	ModelPath      string
	LabelsPath     string
	HolisticScript string
	PythonPath     string

	TranslatorBackend string
	TranslatorAddr    string
	TranslatorScript  string
	TranslatorTimeout time.Duration
	NumBeams          int
	// TranslatorSpawn starts TranslatorScript in gRPC mode on TranslatorAddr
	// when the grpc backend is selected.
	TranslatorSpawn bool

	StoreDSN string
	Tray     bool
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		HTTPAddr:             ":5000",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "text",
		CameraID:             0,
		UploadDir:            "uploads",
		MaxUploadBytes:       32 << 30,
		SkipFactor:           6,
		WindowFrames:         1,
		MaxConsecutiveErrors: 5,
		JPEGQuality:          80,
		StreamFPS:            30,
		PaceFiles:            true,
		ModelPath:            "models/asl.onnx",
		LabelsPath:           "asl_label2sign.json",
		HolisticScript:       "scripts/holistic_service.py",
		PythonPath:           "python3",
		TranslatorBackend:    BackendGRPC,
		TranslatorAddr:       "localhost:50051",
		TranslatorScript:     "scripts/translate_service.py",
		TranslatorTimeout:    30 * time.Second,
		NumBeams:             5,
		TranslatorSpawn:      true,
		StoreDSN:             ":memory:",
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv overlays environment variables on the defaults.
func FromEnv() *Config {
	d := Default()
	return &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", d.HTTPAddr),
		Env:                  getEnv("ENVIRONMENT", d.Env),
		LogLevel:             getEnv("LOG_LEVEL", d.LogLevel),
		LogFormat:            getEnv("LOG_FORMAT", d.LogFormat),
		LogFile:              getEnv("LOG_FILE", d.LogFile),
		CameraID:             getEnvInt("CAMERA_ID", d.CameraID),
		UploadDir:            getEnv("UPLOAD_DIR", d.UploadDir),
		MaxUploadBytes:       getEnvInt64("MAX_UPLOAD_BYTES", d.MaxUploadBytes),
		SkipFactor:           getEnvInt("SKIP_FACTOR", d.SkipFactor),
		WindowFrames:         getEnvInt("WINDOW_FRAMES", d.WindowFrames),
		MaxConsecutiveErrors: getEnvInt("MAX_CONSECUTIVE_ERRORS", d.MaxConsecutiveErrors),
		JPEGQuality:          getEnvInt("JPEG_QUALITY", d.JPEGQuality),
		StreamFPS:            getEnvInt("STREAM_FPS", d.StreamFPS),
		PaceFiles:            getEnvBool("PACE_FILES", d.PaceFiles),
		ModelPath:            getEnv("ASL_MODEL_PATH", d.ModelPath),
		LabelsPath:           getEnv("ASL_LABELS_PATH", d.LabelsPath),
		HolisticScript:       getEnv("HOLISTIC_SCRIPT", d.HolisticScript),
		PythonPath:           getEnv("PYTHON_PATH", d.PythonPath),
		TranslatorBackend:    strings.ToLower(getEnv("TRANSLATOR_BACKEND", d.TranslatorBackend)),
		TranslatorAddr:       getEnv("TRANSLATOR_ADDR", d.TranslatorAddr),
		TranslatorScript:     getEnv("TRANSLATOR_SCRIPT", d.TranslatorScript),
		TranslatorTimeout:    getEnvDuration("TRANSLATOR_TIMEOUT", d.TranslatorTimeout),
		NumBeams:             getEnvInt("NUM_BEAMS", d.NumBeams),
		TranslatorSpawn:      getEnvBool("TRANSLATOR_SPAWN", d.TranslatorSpawn),
		StoreDSN:             getEnv("STORE_DSN", d.StoreDSN),
		Tray:                 getEnvBool("TRAY", d.Tray),
	}
}

// ModelBacked reports whether translations come from the seq2seq model
// rather than the phrasebook alone.
func (c *Config) ModelBacked() bool {
	return c.TranslatorBackend == BackendGRPC || c.TranslatorBackend == BackendExec
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// Validate rejects settings the frame loop or translator cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.SkipFactor < 1 {
		errs = append(errs, fmt.Errorf("SKIP_FACTOR must be >= 1, got %d", c.SkipFactor))
	}
	if c.WindowFrames < 1 {
		errs = append(errs, fmt.Errorf("WINDOW_FRAMES must be >= 1, got %d", c.WindowFrames))
	}
	if c.MaxConsecutiveErrors < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONSECUTIVE_ERRORS must be >= 1, got %d", c.MaxConsecutiveErrors))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("JPEG_QUALITY must be in 1..100, got %d", c.JPEGQuality))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.TranslatorTimeout <= 0 {
		errs = append(errs, errors.New("TRANSLATOR_TIMEOUT must be positive"))
	}
	if c.NumBeams < 1 {
		errs = append(errs, fmt.Errorf("NUM_BEAMS must be >= 1, got %d", c.NumBeams))
	}
	switch c.TranslatorBackend {
	case BackendGRPC, BackendExec, BackendPhrasebook:
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSLATOR_BACKEND %q", c.TranslatorBackend))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
