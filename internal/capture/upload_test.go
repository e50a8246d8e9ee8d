package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		filename string
		want     error
	}{
		{"clip.mp4", nil},
		{"CLIP.MP4", nil},
		{"a.b.webm", nil},
		{"lesson.mov", nil},
		{"old.avi", nil},
		{"clip.exe", ErrInvalidFileType},
		{"clip", ErrInvalidFileType},
		{"mp4", ErrInvalidFileType},
		{"", ErrNoFile},
		{"   ", ErrNoFile},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if err := ValidateUpload(tt.filename); !errors.Is(err, tt.want) {
				t.Errorf("ValidateUpload(%q) = %v, want %v", tt.filename, err, tt.want)
			}
		})
	}
}

func TestSaveUpload_ContentNotInspected(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveUpload(dir, "clip.mp4", strings.NewReader("definitely not a video"))
	if err != nil {
		t.Fatalf("SaveUpload() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("saved outside upload dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "definitely not a video" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveUpload_RejectsBadExtension(t *testing.T) {
	dir := t.TempDir()

	if _, err := SaveUpload(dir, "clip.exe", strings.NewReader("MZ")); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("SaveUpload() error = %v, want ErrInvalidFileType", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("rejected upload left %d files behind", len(entries))
	}
}

func TestSaveUpload_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := SaveUpload(dir, "clip.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SaveUpload(dir, "clip.mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Errorf("two uploads share a path: %s", a)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"../../etc/passwd.mp4", "passwd.mp4"},
		{`C:\Users\me\my clip.mov`, "my_clip.mov"},
		{"xin chào.webm", "xin_cho.webm"},
		{"...", "upload"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
