package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notepilot/model"
)

// MemoryFile keeps the bounded conversation memory as a JSON file so it
// survives restarts of the same data directory.
type MemoryFile struct {
	path string
}

// NewMemoryFile returns a cache stored at path.
func NewMemoryFile(path string) *MemoryFile {
	return &MemoryFile{path: path}
}

// LoadMemory returns the cached turns. A missing file is an empty memory.
func (f *MemoryFile) LoadMemory() ([]model.ConversationTurn, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory cache: %w", err)
	}

	var turns []model.ConversationTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory cache: %w", err)
	}
	return turns, nil
}

// SaveMemory replaces the cache contents. An empty memory removes the file.
func (f *MemoryFile) SaveMemory(turns []model.ConversationTurn) error {
	if len(turns) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove memory cache: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory cache: %w", err)
	}
	return writeFileAtomic(f.path, data)
}

// ExportTranscript writes msgs as indented JSON to path.
func ExportTranscript(msgs []model.ChatMessage, path string) error {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// 0600: transcripts contain note content
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateExportPath returns a timestamped export path in dir.
func GenerateExportPath(dir, name string, now time.Time) string {
	filename := fmt.Sprintf("notepilot-%s-%s.json", SanitizeFilename(name), now.Format("20060102-150405"))
	return filepath.Join(dir, filename)
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-", " ", "-",
	"\n", "-", "\r", "-",
)

// SanitizeFilename replaces characters that are invalid in filenames.
func SanitizeFilename(name string) string {
	name = strings.Trim(filenameReplacer.Replace(name), "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "transcript"
	}
	return name
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
