package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// NotebookStore persists notebook sessions: one directory per notebook
// with notebook.json (metadata), messages.json ({messages}) and the typed
// file buckets docs/, images/, videos/ and outputs/.
type NotebookStore struct {
	root string
	mu   sync.Mutex
}

func NewNotebookStore(dataDir string) (*NotebookStore, error) {
	root := filepath.Join(dataDir, "notebooks")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create notebooks directory: %w", err)
	}
	return &NotebookStore{root: root}, nil
}

func (s *NotebookStore) Root() string { return s.root }

func (s *NotebookStore) Dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *NotebookStore) metaPath(id string) string {
	return filepath.Join(s.root, id, "notebook.json")
}

func (s *NotebookStore) messagesPath(id string) string {
	return filepath.Join(s.root, id, "messages.json")
}

// Create makes a new notebook with the standard bucket layout.
func (s *NotebookStore) Create(title string) (models.NotebookMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = "New Notebook"
	}
	now := time.Now()
	meta := models.NotebookMeta{
		ID:        NewNotebookID(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Plugins:   models.Plugins{Enabled: []string{}, Settings: map[string]string{}},
		Stats:     models.Stats{LastActive: now},
	}
	if err := s.write(meta, []models.Message{}); err != nil {
		return models.NotebookMeta{}, err
	}
	return meta, nil
}

// write lays down the directory structure, metadata and messages.
func (s *NotebookStore) write(meta models.NotebookMeta, messages []models.Message) error {
	for _, bucket := range []string{BucketDocs, BucketImages, BucketVideos, BucketOutputs} {
		if err := os.MkdirAll(filepath.Join(s.Dir(meta.ID), bucket), 0755); err != nil {
			return fmt.Errorf("failed to create notebook directory: %w", err)
		}
	}
	if err := writeJSON(s.metaPath(meta.ID), meta); err != nil {
		return err
	}
	return writeJSON(s.messagesPath(meta.ID), map[string][]models.Message{"messages": messages})
}

// CreateFrom writes a fully formed notebook, used by migration and import.
func (s *NotebookStore) CreateFrom(meta models.NotebookMeta, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(meta, messages)
}

// Load returns the notebook with recomputed stats. A missing notebook
// yields an empty default carrying the requested id; stored stats are
// advisory only and are overwritten from what is actually on disk.
func (s *NotebookStore) Load(id string) models.Notebook {
	nb := models.Notebook{
		Meta:     models.NotebookMeta{ID: id, Title: "New Notebook"},
		Messages: []models.Message{},
	}
	if !readJSON(s.metaPath(id), &nb.Meta) {
		if _, err := os.Stat(s.metaPath(id)); err == nil {
			log.Printf("notebook %s: unreadable notebook.json, treating as empty", id)
		}
		nb.Meta.ID = id
	}

	nb.Messages = s.Messages(id)
	nb.Files = s.files(id)

	nb.Meta.Stats.TotalMessages = len(nb.Messages)
	nb.Meta.Stats.TotalFiles = len(nb.Files.Docs) + len(nb.Files.Images) + len(nb.Files.Videos) + len(nb.Files.Outputs)
	if !nb.Meta.UpdatedAt.IsZero() {
		nb.Meta.Stats.LastActive = nb.Meta.UpdatedAt
	}
	return nb
}

// Messages reads the message history. Missing or corrupted files load as
// an empty conversation.
func (s *NotebookStore) Messages(id string) []models.Message {
	var record struct {
		Messages []models.Message `json:"messages"`
	}
	if !readJSON(s.messagesPath(id), &record) || record.Messages == nil {
		return []models.Message{}
	}
	return record.Messages
}

// SaveMessages rewrites the messages file, round-tripping any fields of
// the record it does not understand.
func (s *NotebookStore) SaveMessages(id string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := map[string]json.RawMessage{}
	readJSON(s.messagesPath(id), &raw)

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	raw["messages"] = data

	if err := os.MkdirAll(s.Dir(id), 0755); err != nil {
		return fmt.Errorf("failed to create notebook directory: %w", err)
	}
	if err := writeJSON(s.messagesPath(id), raw); err != nil {
		return err
	}
	return s.touch(id)
}

// UpdateMeta applies a mutation to the persisted metadata and bumps
// updatedAt.
func (s *NotebookStore) UpdateMeta(id string, apply func(*models.NotebookMeta)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta models.NotebookMeta
	if !readJSON(s.metaPath(id), &meta) {
		return fmt.Errorf("notebook %s: %w", id, models.ErrNotFound)
	}
	apply(&meta)
	meta.ID = id // id is immutable
	meta.UpdatedAt = time.Now()
	return writeJSON(s.metaPath(id), meta)
}

// Rename sets the notebook title.
func (s *NotebookStore) Rename(id, title string) error {
	return s.UpdateMeta(id, func(meta *models.NotebookMeta) {
		meta.Title = title
	})
}

func (s *NotebookStore) touch(id string) error {
	var meta models.NotebookMeta
	if !readJSON(s.metaPath(id), &meta) {
		return nil
	}
	meta.UpdatedAt = time.Now()
	return writeJSON(s.metaPath(id), meta)
}

// Delete removes the notebook directory recursively; deleting twice
// succeeds both times.
func (s *NotebookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return fmt.Errorf("failed to delete notebook %s: %w", id, err)
	}
	return nil
}

// List returns metadata for every notebook, most recently updated first.
func (s *NotebookStore) List() ([]models.NotebookMeta, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}

	var metas []models.NotebookMeta
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var meta models.NotebookMeta
		if !readJSON(s.metaPath(entry.Name()), &meta) {
			log.Printf("notebook %s: unreadable metadata, skipping", entry.Name())
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

func (s *NotebookStore) files(id string) models.NotebookFiles {
	files := models.NotebookFiles{
		Docs:    []models.DocSummary{},
		Images:  []models.MediaFile{},
		Videos:  []models.MediaFile{},
		Outputs: []models.MediaFile{},
	}
	for _, doc := range s.ListDocuments(id) {
		files.Docs = append(files.Docs, models.DocSummary{ID: doc.ID, Name: doc.Name, Ext: doc.Ext})
	}
	files.Images = s.ListMedia(id, BucketImages)
	files.Videos = s.ListMedia(id, BucketVideos)
	files.Outputs = s.ListMedia(id, BucketOutputs)
	return files
}
