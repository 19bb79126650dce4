package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// ChatStore persists flat legacy sessions: one directory per chat holding
// chat.json = {messages, docs} plus a docs/ subtree, with a store-level
// manifest.json mapping chat id to display name.
//
// All mutations are whole-file read-modify-write. Fields a writer does not
// understand are round-tripped untouched, which is why updates go through
// a raw JSON object rather than the typed record.
type ChatStore struct {
	root string
	mu   sync.Mutex
}

func NewChatStore(dataDir string) (*ChatStore, error) {
	root := filepath.Join(dataDir, "chats")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chats directory: %w", err)
	}
	return &ChatStore{root: root}, nil
}

func (s *ChatStore) Root() string { return s.root }

func (s *ChatStore) Dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *ChatStore) chatPath(id string) string {
	return filepath.Join(s.root, id, "chat.json")
}

func (s *ChatStore) manifestPath() string {
	return filepath.Join(s.root, "manifest.json")
}

// Create makes a new empty chat session and returns its id.
func (s *ChatStore) Create() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := NewChatID()
	if err := os.MkdirAll(s.Dir(id), 0755); err != nil {
		return "", fmt.Errorf("failed to create chat directory: %w", err)
	}
	record := models.ChatRecord{Messages: []models.Message{}, Docs: []models.DocSummary{}}
	if err := writeJSON(s.chatPath(id), record); err != nil {
		return "", err
	}
	return id, nil
}

// Load returns the chat record for id. A missing or corrupted record
// yields an empty default, never an error, so new and existing-but-empty
// sessions look the same to callers.
func (s *ChatStore) Load(id string) models.ChatRecord {
	record := models.ChatRecord{Messages: []models.Message{}, Docs: []models.DocSummary{}}
	if !readJSON(s.chatPath(id), &record) {
		if _, err := os.Stat(s.chatPath(id)); err == nil {
			log.Printf("chat %s: unreadable chat.json, treating as empty", id)
		}
		return models.ChatRecord{Messages: []models.Message{}, Docs: []models.DocSummary{}}
	}
	return record
}

// Messages returns the chat's message history.
func (s *ChatStore) Messages(id string) []models.Message {
	return s.Load(id).Messages
}

// SaveMessages replaces the messages field of the persisted record and
// rewrites the whole file, leaving every other field as it was on disk.
func (s *ChatStore) SaveMessages(id string, messages []models.Message) error {
	return s.patch(id, "messages", messages)
}

// UpdateDocs replaces the docs manifest inside the persisted record.
func (s *ChatStore) UpdateDocs(id string, docs []models.DocSummary) error {
	return s.patch(id, "docs", docs)
}

func (s *ChatStore) patch(id, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := map[string]json.RawMessage{}
	readJSON(s.chatPath(id), &raw)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", field, err)
	}
	raw[field] = data
	if _, ok := raw["messages"]; !ok {
		raw["messages"] = json.RawMessage("[]")
	}
	if _, ok := raw["docs"]; !ok {
		raw["docs"] = json.RawMessage("[]")
	}

	if err := os.MkdirAll(s.Dir(id), 0755); err != nil {
		return fmt.Errorf("failed to create chat directory: %w", err)
	}
	return writeJSON(s.chatPath(id), raw)
}

// Rename records a display name for the chat in the manifest.
func (s *ChatStore) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest := map[string]string{}
	readJSON(s.manifestPath(), &manifest)
	manifest[id] = name
	return writeJSON(s.manifestPath(), manifest)
}

// Manifest returns the id to display-name mapping for explicitly named
// chats.
func (s *ChatStore) Manifest() map[string]string {
	manifest := map[string]string{}
	readJSON(s.manifestPath(), &manifest)
	return manifest
}

// Delete removes the chat directory recursively. Deleting a chat that does
// not exist succeeds.
func (s *ChatStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", id, err)
	}

	manifest := map[string]string{}
	if readJSON(s.manifestPath(), &manifest) {
		if _, ok := manifest[id]; ok {
			delete(manifest, id)
			return writeJSON(s.manifestPath(), manifest)
		}
	}
	return nil
}

// List returns a summary for every chat session, oldest id first.
func (s *ChatStore) List() ([]models.SessionSummary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	manifest := s.Manifest()

	var summaries []models.SessionSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		record := s.Load(id)
		name := manifest[id]
		if name == "" {
			name = id
		}
		summaries = append(summaries, models.SessionSummary{
			ID:       id,
			Name:     name,
			Docs:     len(record.Docs),
			Messages: len(record.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}
