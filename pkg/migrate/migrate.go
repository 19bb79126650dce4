package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/store"
)

const (
	markerFile   = ".migrated.json"
	titleMaxLen  = 50
	fallbackName = "Migrated Chat"
)

// marker is written into a legacy chat directory after a successful
// migration so a re-run does not create a duplicate notebook.
type marker struct {
	NotebookID string    `json:"notebookId"`
	MigratedAt time.Time `json:"migratedAt"`
}

// Result summarizes one MigrateAll run.
type Result struct {
	Migrated  int
	Notebooks []models.NotebookMeta
	Skipped   []string
}

// Engine converts legacy chat sessions into notebook sessions. The
// transform is additive: legacy data is read, never modified or deleted,
// apart from the marker file recording that the chat was migrated.
type Engine struct {
	chats     *store.ChatStore
	notebooks *store.NotebookStore
	force     bool
}

func New(chats *store.ChatStore, notebooks *store.NotebookStore, force bool) *Engine {
	return &Engine{chats: chats, notebooks: notebooks, force: force}
}

// MigrateAll walks every legacy chat and creates a notebook for each one
// that has a readable message record and has not been migrated before
// (unless force). A chat that fails to migrate is logged and skipped; the
// loop always continues to the next.
func (e *Engine) MigrateAll(ctx context.Context) (Result, error) {
	summaries, err := e.chats.List()
	if err != nil {
		return Result{}, fmt.Errorf("failed to enumerate legacy chats: %w", err)
	}

	manifest := e.chats.Manifest()

	var result Result
	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := summary.ID
		if !e.force && e.alreadyMigrated(id) {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		if !e.hasRecord(id) {
			log.Printf("migrate: skipping %s: no readable chat.json", id)
			result.Skipped = append(result.Skipped, id)
			continue
		}

		meta, err := e.migrateOne(id, manifest[id])
		if err != nil {
			log.Printf("migrate: failed to migrate %s: %v", id, err)
			result.Skipped = append(result.Skipped, id)
			continue
		}

		result.Migrated++
		result.Notebooks = append(result.Notebooks, meta)
	}
	return result, nil
}

func (e *Engine) alreadyMigrated(chatID string) bool {
	_, err := os.Stat(filepath.Join(e.chats.Dir(chatID), markerFile))
	return err == nil
}

func (e *Engine) hasRecord(chatID string) bool {
	data, err := os.ReadFile(filepath.Join(e.chats.Dir(chatID), "chat.json"))
	return err == nil && json.Valid(data)
}

func (e *Engine) migrateOne(chatID, manifestName string) (models.NotebookMeta, error) {
	record := e.chats.Load(chatID)

	createdAt := e.creationTime(chatID, record.Messages)
	updatedAt := createdAt
	if n := len(record.Messages); n > 0 && !record.Messages[n-1].Timestamp.IsZero() {
		updatedAt = record.Messages[n-1].Timestamp
	}

	now := time.Now()
	meta := models.NotebookMeta{
		ID:          store.NewNotebookID(),
		Title:       deriveTitle(manifestName, chatID, record.Messages),
		Description: fmt.Sprintf("Migrated from chat session: %s", chatID),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Tags:        []string{"migrated", "legacy-chat"},
		Plugins:     models.Plugins{Enabled: []string{}, Settings: map[string]string{}},
		Stats: models.Stats{
			TotalMessages: len(record.Messages),
			TotalFiles:    len(record.Docs),
			LastActive:    updatedAt,
		},
		Migration: &models.Migration{
			OriginalChatID: chatID,
			MigratedAt:     now,
			Version:        "1.0",
		},
	}
	if len(record.Docs) > 0 {
		meta.Plugins.Enabled = append(meta.Plugins.Enabled, "document-rag")
	}

	messages := withIDs(record.Messages, now.UnixMilli(), createdAt)
	if err := e.notebooks.CreateFrom(meta, messages); err != nil {
		return models.NotebookMeta{}, err
	}

	if err := e.copyDocuments(chatID, meta.ID, record.Docs); err != nil {
		return models.NotebookMeta{}, err
	}
	if err := e.copyMedia(chatID, meta.ID); err != nil {
		return models.NotebookMeta{}, err
	}

	if err := e.writeMarker(chatID, meta.ID, now); err != nil {
		log.Printf("migrate: could not write marker for %s: %v", chatID, err)
	}
	return meta, nil
}

// creationTime prefers the first message's timestamp, then the chat
// directory's mtime, then the current time.
func (e *Engine) creationTime(chatID string, messages []models.Message) time.Time {
	if len(messages) > 0 && !messages[0].Timestamp.IsZero() {
		return messages[0].Timestamp
	}
	if info, err := os.Stat(e.chats.Dir(chatID)); err == nil {
		return info.ModTime()
	}
	return time.Now()
}

// deriveTitle picks the manifest name, else the first user message's
// leading text, else a fixed label.
func deriveTitle(manifestName, chatID string, messages []models.Message) string {
	if manifestName != "" && manifestName != chatID {
		return manifestName
	}
	for _, msg := range messages {
		if msg.Role != models.RoleUser || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		title := strings.Join(strings.Fields(msg.Content), " ")
		if len(title) > titleMaxLen {
			title = strings.TrimSpace(title[:titleMaxLen]) + "..."
		}
		return title
	}
	return fallbackName
}

// withIDs fills in ids and timestamps the legacy messages may lack. Ids
// already present are never rewritten.
func withIDs(messages []models.Message, ts int64, createdAt time.Time) []models.Message {
	out := make([]models.Message, len(messages))
	for i, msg := range messages {
		if msg.ID == "" {
			msg.ID = fmt.Sprintf("msg-%d-%d", ts, i)
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = createdAt
		}
		out[i] = msg
	}
	return out
}

// copyDocuments rebuilds each legacy document in the notebook's docs
// bucket. Payload bytes are copied verbatim; retrieval artifacts come
// along when they are readable, and a document whose artifacts are gone
// still migrates as a bare file.
func (e *Engine) copyDocuments(chatID, notebookID string, docs []models.DocSummary) error {
	metadata := map[string]models.Document{}
	for _, doc := range e.chats.Documents(chatID) {
		metadata[doc.ID] = doc
	}

	for _, summary := range docs {
		doc, ok := metadata[summary.ID]
		if !ok {
			doc = models.Document{ID: summary.ID, Name: summary.Name, Ext: summary.Ext}
		}

		payload, err := os.ReadFile(filepath.Join(e.chats.Dir(chatID), "docs", summary.ID, "file."+summary.Ext))
		if err != nil {
			log.Printf("migrate: chat %s: document file for %s missing, skipping", chatID, summary.Name)
			continue
		}
		if err := e.notebooks.AddDocument(notebookID, &doc, payload); err != nil {
			return err
		}
	}
	return nil
}

// copyMedia classifies loose legacy media files into the typed buckets,
// keeping their names.
func (e *Engine) copyMedia(chatID, notebookID string) error {
	mediaDir := filepath.Join(e.chats.Dir(chatID), "media")
	entries, err := os.ReadDir(mediaDir)
	if err != nil {
		return nil // no media directory
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		bucket := store.ClassifyMedia(entry.Name())
		dest := filepath.Join(e.notebooks.Dir(notebookID), bucket, entry.Name())
		if err := copyFile(filepath.Join(mediaDir, entry.Name()), dest); err != nil {
			return fmt.Errorf("failed to copy media %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (e *Engine) writeMarker(chatID, notebookID string, at time.Time) error {
	data, err := json.MarshalIndent(marker{NotebookID: notebookID, MigratedAt: at}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(e.chats.Dir(chatID), markerFile), data, 0644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
