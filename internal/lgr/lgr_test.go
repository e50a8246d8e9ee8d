package lgr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSONExpandsErrors(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, slog.LevelDebug, "json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Error("boom", slog.Any("error", xerrors.New("camera unplugged")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	group, ok := rec["error"].(map[string]any)
	if !ok {
		t.Fatalf("error attr = %T, want object", rec["error"])
	}
	if group["msg"] != "camera unplugged" {
		t.Errorf("error.msg = %v", group["msg"])
	}
	if _, ok := group["trace"]; !ok {
		t.Error("expected trace for xerrors error")
	}
}

func TestNew_PlainErrorHasNoTrace(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(&buf, slog.LevelInfo, "json")
	l.Warn("skip", slog.Any("error", errors.New("plain")))

	if strings.Contains(buf.String(), "trace") {
		t.Errorf("plain error should not carry a trace: %s", buf.String())
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, slog.LevelInfo, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestInit_WithFile(t *testing.T) {
	prev := Logger
	defer func() {
		Logger = prev
		slog.SetDefault(prev)
	}()

	path := filepath.Join(t.TempDir(), "logs", "signlens.log")
	closer, err := Init(Options{Level: "debug", Format: "text", File: path})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer closer.Close()

	if !Logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}
