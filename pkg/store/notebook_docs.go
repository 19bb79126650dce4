package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// Notebook documents live flat in the docs/ bucket: the payload file under
// its own name plus a <name>.meta.json sidecar carrying the document
// metadata and retrieval artifacts.

const docMetaSuffix = ".meta.json"

func (s *NotebookStore) docsDir(id string) string {
	return filepath.Join(s.root, id, BucketDocs)
}

// AddDocument writes the payload and its sidecar into the docs bucket.
func (s *NotebookStore) AddDocument(id string, doc *models.Document, file []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.docsDir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, doc.Name), file, 0644); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, doc.Name+docMetaSuffix), doc); err != nil {
		return err
	}
	return s.touch(id)
}

// LoadDocument reads one document by file name or document id. ok is
// false when the sidecar is missing, unreadable, or the payload file has
// vanished from under it.
func (s *NotebookStore) LoadDocument(id, key string) (models.Document, bool) {
	for _, doc := range s.ListDocuments(id) {
		if doc.Name != key && doc.ID != key {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.docsDir(id), doc.Name)); err != nil {
			log.Printf("notebook %s: document file %s missing, treating as no data", id, doc.Name)
			return models.Document{}, false
		}
		return doc, true
	}
	return models.Document{}, false
}

// RemoveDocument deletes the payload and sidecar matching key (file name
// or document id). Removing an absent document succeeds.
func (s *NotebookStore) RemoveDocument(id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.ListDocuments(id) {
		if doc.Name != key && doc.ID != key {
			continue
		}
		if err := os.Remove(filepath.Join(s.docsDir(id), doc.Name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document %s: %w", doc.Name, err)
		}
		if err := os.Remove(filepath.Join(s.docsDir(id), doc.Name+docMetaSuffix)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document sidecar: %w", err)
		}
		return s.touch(id)
	}
	return nil
}

// ListDocuments reads every document sidecar in the docs bucket, sorted by
// file name. Unreadable sidecars are skipped.
func (s *NotebookStore) ListDocuments(id string) []models.Document {
	entries, err := os.ReadDir(s.docsDir(id))
	if err != nil {
		return nil
	}

	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), docMetaSuffix) {
			continue
		}
		var doc models.Document
		if !readJSON(filepath.Join(s.docsDir(id), entry.Name()), &doc) {
			log.Printf("notebook %s: unreadable sidecar %s, skipping", id, entry.Name())
			continue
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs
}

// Documents returns every document with its retrieval artifacts, skipping
// sidecars whose payload file has vanished.
func (s *NotebookStore) Documents(id string) []models.Document {
	var docs []models.Document
	for _, doc := range s.ListDocuments(id) {
		if _, err := os.Stat(filepath.Join(s.docsDir(id), doc.Name)); err != nil {
			log.Printf("notebook %s: document file %s missing, skipping", id, doc.Name)
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
