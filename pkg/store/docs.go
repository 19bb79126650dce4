package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// Legacy document artifacts live under <chat>/docs/<docId>/: the original
// upload as file.<ext>, chunk texts in chunks.json and their vectors in
// embeddings.json, with a sibling docsMetadata.json beside chat.json.

func (s *ChatStore) docDir(chatID, docID string) string {
	return filepath.Join(s.root, chatID, "docs", docID)
}

func (s *ChatStore) docsMetadataPath(chatID string) string {
	return filepath.Join(s.root, chatID, "docsMetadata.json")
}

// AddDocument persists a parsed document: original bytes (immutable once
// written), chunk and embedding artifacts, and the session's doc manifest.
func (s *ChatStore) AddDocument(chatID string, doc *models.Document, file []byte) error {
	dir := s.docDir(chatID, doc.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "file."+doc.Ext), file, 0644); err != nil {
		return fmt.Errorf("failed to write document file: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "chunks.json"), doc.Chunks); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "embeddings.json"), doc.Embeddings); err != nil {
		return err
	}

	record := s.Load(chatID)
	docs := append(record.Docs, models.DocSummary{ID: doc.ID, Name: doc.Name, Ext: doc.Ext})
	if err := s.UpdateDocs(chatID, docs); err != nil {
		return err
	}

	metadata := s.loadDocsMetadata(chatID)
	summary := *doc
	summary.Chunks = nil
	summary.Embeddings = nil
	metadata = append(metadata, summary)
	return writeJSON(s.docsMetadataPath(chatID), metadata)
}

// LoadDocData reads a document's retrieval artifacts back. ok is false
// when either artifact is missing or unreadable; the caller treats RAG as
// unavailable for that document instead of failing.
func (s *ChatStore) LoadDocData(chatID, docID string) (chunks []string, embeddings [][]float32, ok bool) {
	dir := s.docDir(chatID, docID)
	if !readJSON(filepath.Join(dir, "chunks.json"), &chunks) {
		return nil, nil, false
	}
	if !readJSON(filepath.Join(dir, "embeddings.json"), &embeddings) {
		return nil, nil, false
	}
	return chunks, embeddings, true
}

// RemoveDocument deletes a document's artifacts and drops it from the
// manifest. Removing an absent document succeeds.
func (s *ChatStore) RemoveDocument(chatID, docID string) error {
	if err := os.RemoveAll(s.docDir(chatID, docID)); err != nil {
		return fmt.Errorf("failed to remove document %s: %w", docID, err)
	}

	record := s.Load(chatID)
	docs := record.Docs[:0]
	for _, d := range record.Docs {
		if d.ID != docID {
			docs = append(docs, d)
		}
	}
	if err := s.UpdateDocs(chatID, docs); err != nil {
		return err
	}

	metadata := s.loadDocsMetadata(chatID)
	kept := metadata[:0]
	for _, d := range metadata {
		if d.ID != docID {
			kept = append(kept, d)
		}
	}
	return writeJSON(s.docsMetadataPath(chatID), kept)
}

// ListDocuments returns the manifest entries for a chat's documents.
func (s *ChatStore) ListDocuments(chatID string) []models.DocSummary {
	return s.Load(chatID).Docs
}

// Documents loads every document of the chat with its retrieval data.
// Manifest entries whose artifacts are gone or corrupted are skipped: the
// manifest implies artifact existence but does not guarantee it.
func (s *ChatStore) Documents(chatID string) []models.Document {
	metadata := s.loadDocsMetadata(chatID)
	byID := make(map[string]models.Document, len(metadata))
	for _, d := range metadata {
		byID[d.ID] = d
	}

	var docs []models.Document
	for _, summary := range s.Load(chatID).Docs {
		chunks, embeddings, ok := s.LoadDocData(chatID, summary.ID)
		if !ok {
			log.Printf("chat %s: no retrieval data for document %s (%s)", chatID, summary.ID, summary.Name)
			continue
		}
		doc, found := byID[summary.ID]
		if !found {
			doc = models.Document{ID: summary.ID, Name: summary.Name, Ext: summary.Ext}
		}
		doc.Chunks = chunks
		doc.Embeddings = embeddings
		docs = append(docs, doc)
	}
	return docs
}

func (s *ChatStore) loadDocsMetadata(chatID string) []models.Document {
	var metadata []models.Document
	readJSON(s.docsMetadataPath(chatID), &metadata)
	return metadata
}
