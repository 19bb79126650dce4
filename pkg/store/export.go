package store

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// Export packages the notebook directory as a zip archive (the .snap
// format) with paths relative to the notebook root.
func (s *NotebookStore) Export(id string, w io.Writer) error {
	root := s.Dir(id)
	if _, err := os.Stat(s.metaPath(id)); err != nil {
		return fmt.Errorf("notebook %s: %w", id, models.ErrNotFound)
	}

	zw := zip.NewWriter(w)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("failed to export notebook %s: %w", id, err)
	}
	return zw.Close()
}

// Import unpacks an exported archive as a brand new notebook. The session
// gets a fresh id, and every document referenced by a sidecar is checked
// against the unpacked payload files: entries whose file is missing are
// dropped and the returned warning flag is set.
func (s *NotebookStore) Import(r io.ReaderAt, size int64) (models.NotebookMeta, bool, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return models.NotebookMeta{}, false, fmt.Errorf("failed to read archive: %w", err)
	}

	id := NewNotebookID()
	root := s.Dir(id)

	for _, file := range zr.File {
		name := filepath.FromSlash(file.Name)
		if strings.Contains(name, "..") {
			return models.NotebookMeta{}, false, fmt.Errorf("%w: archive entry escapes notebook directory", models.ErrInvalidArgument)
		}
		dest := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return models.NotebookMeta{}, false, err
		}
		if err := extractEntry(file, dest); err != nil {
			os.RemoveAll(root)
			return models.NotebookMeta{}, false, fmt.Errorf("failed to unpack %s: %w", file.Name, err)
		}
	}

	var meta models.NotebookMeta
	if !readJSON(s.metaPath(id), &meta) {
		os.RemoveAll(root)
		return models.NotebookMeta{}, false, fmt.Errorf("archive has no readable notebook.json")
	}

	meta.ID = id
	meta.UpdatedAt = time.Now()
	if err := writeJSON(s.metaPath(id), meta); err != nil {
		os.RemoveAll(root)
		return models.NotebookMeta{}, false, err
	}

	warning := s.dropDanglingDocs(id)
	return meta, warning, nil
}

// dropDanglingDocs removes sidecars whose payload file does not exist and
// reports whether anything was dropped.
func (s *NotebookStore) dropDanglingDocs(id string) bool {
	dropped := false
	for _, doc := range s.ListDocuments(id) {
		if _, err := os.Stat(filepath.Join(s.docsDir(id), doc.Name)); err == nil {
			continue
		}
		log.Printf("import %s: document %s has no payload file, dropping", id, doc.Name)
		os.Remove(filepath.Join(s.docsDir(id), doc.Name+docMetaSuffix))
		dropped = true
	}
	return dropped
}

func extractEntry(file *zip.File, dest string) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
