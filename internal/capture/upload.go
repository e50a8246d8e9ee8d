package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Upload validation errors. Their messages are shown to the user verbatim.
var (
	ErrNoFile          = errors.New("No file selected")
	ErrInvalidFileType = errors.New("Invalid file type. Please upload mp4, avi, mov, or webm")
)

// AllowedExtensions lists the video containers accepted for upload.
var AllowedExtensions = map[string]bool{
	"mp4":  true,
	"avi":  true,
	"mov":  true,
	"webm": true,
}

// ValidateUpload checks only the file name; the content is not inspected.
func ValidateUpload(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return ErrNoFile
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !AllowedExtensions[ext] {
		return ErrInvalidFileType
	}
	return nil
}

// SaveUpload validates filename and copies r into dir under a sanitized,
// collision-free name. It returns the path written.
func SaveUpload(dir, filename string, r io.Reader) (string, error) {
	if err := ValidateUpload(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString()[:8] + "_" + SanitizeFilename(filename)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// SanitizeFilename strips directories and keeps only ASCII letters, digits,
// dots, dashes and underscores.
func SanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
