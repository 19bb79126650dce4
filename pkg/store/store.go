package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File buckets inside a notebook directory.
const (
	BucketDocs    = "docs"
	BucketImages  = "images"
	BucketVideos  = "videos"
	BucketOutputs = "outputs"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".webm": true,
}

// ClassifyMedia maps a file name to its notebook bucket by extension.
// Anything that is neither image nor video counts as generated output.
func ClassifyMedia(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case imageExts[ext]:
		return BucketImages
	case videoExts[ext]:
		return BucketVideos
	default:
		return BucketOutputs
	}
}

// NewChatID returns a legacy session id.
func NewChatID() string {
	return fmt.Sprintf("chat-%d", time.Now().UnixMilli())
}

// NewNotebookID returns a notebook session id: monotonic timestamp plus a
// random suffix, so ids sort by creation time and never collide.
func NewNotebookID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("notebook-%d-%s", time.Now().UnixMilli(), suffix)
}

// writeJSON writes v pretty-printed via a temp file and atomic rename, so
// a crash mid-write never leaves a truncated record behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// readJSON loads path into v. ok is false when the file is missing or the
// JSON is malformed; corruption is reported to the caller as "no data"
// rather than an error, per the degradation rules.
func readJSON(path string, v any) (ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
