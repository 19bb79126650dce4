package rag

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/internal/types"
	"github.com/snapthinkllm/snapthinkllm/pkg/chunker"
	"github.com/snapthinkllm/snapthinkllm/pkg/extract"
	"github.com/snapthinkllm/snapthinkllm/pkg/ranker"
)

// ServiceConfig represents the configuration for the retrieval pipeline.
type ServiceConfig struct {
	SummaryTopK int
	AnswerTopK  int
	SearchTopK  int
	EmbedModel  string

	// Confirm approves a model download when the embedding model is
	// missing; Events receives download progress. Both may be nil.
	Confirm func(model string) bool
	Events  chan<- models.DownloadStatus
}

// Service runs the document pipeline: upload, question answering over the
// session's documents, summarization, and snippet search.
type Service struct {
	config   ServiceConfig
	chunker  chunker.Chunker
	embedder types.Embedder
	chat     types.Completer
	manager  types.ModelManager
	sessions types.SessionStore
}

// Answer is a completed RAG response with the snippets it was grounded on.
type Answer struct {
	Answer  string          `json:"answer"`
	Sources []models.Source `json:"sources"`
}

func NewWithConfig(config ServiceConfig, sessions types.SessionStore, embedder types.Embedder,
	chat types.Completer, manager types.ModelManager, ch chunker.Chunker) *Service {
	if config.SummaryTopK == 0 {
		config.SummaryTopK = 3
	}
	if config.AnswerTopK == 0 {
		config.AnswerTopK = 7
	}
	if config.SearchTopK == 0 {
		config.SearchTopK = 5
	}
	if config.EmbedModel == "" {
		config.EmbedModel = "nomic-embed-text:latest"
	}

	return &Service{
		config:   config,
		chunker:  ch,
		embedder: embedder,
		chat:     chat,
		manager:  manager,
		sessions: sessions,
	}
}

// UploadDocument parses an upload into text, chunks and embeds it, and
// persists the document with its retrieval artifacts. Chunks whose
// embedding failed are dropped from both parallel arrays; the document is
// still stored so the raw file survives even when embedding degraded.
func (s *Service) UploadDocument(ctx context.Context, sessionID, filename string, data []byte) (models.Document, error) {
	text, err := extract.Text(filename, data)
	if err != nil {
		return models.Document{}, err
	}

	chunks := s.chunker.Chunk(text)

	if err := s.ensureEmbedModel(ctx); err != nil {
		return models.Document{}, err
	}

	results := s.embedder.EmbedBatch(ctx, chunks)
	if ctx.Err() != nil {
		return models.Document{}, ctx.Err()
	}
	if len(results) < len(chunks) {
		log.Printf("document %s: embedded %d of %d chunks", filename, len(results), len(chunks))
	}

	kept := make([]string, 0, len(results))
	embeddings := make([][]float32, 0, len(results))
	for _, r := range results {
		kept = append(kept, r.Text)
		embeddings = append(embeddings, r.Vector)
	}

	doc := models.Document{
		ID:         uuid.NewString(),
		Name:       filename,
		Ext:        strings.TrimPrefix(filepath.Ext(filename), "."),
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
		Chunks:     kept,
		Embeddings: embeddings,
	}
	if err := s.sessions.AddDocument(sessionID, &doc, data); err != nil {
		return models.Document{}, err
	}

	s.appendUploadPrompt(sessionID, doc)
	return doc, nil
}

// appendUploadPrompt posts the auto-summary prompt for a fresh upload,
// citing the document's leading chunks. Degrades to a log line on failure;
// the upload itself already succeeded.
func (s *Service) appendUploadPrompt(sessionID string, doc models.Document) {
	if len(doc.Chunks) == 0 {
		return
	}

	top := doc.Chunks
	if len(top) > s.config.SummaryTopK {
		top = top[:s.config.SummaryTopK]
	}
	sources := make([]models.Source, len(top))
	for i, chunk := range top {
		sources[i] = models.Source{Text: chunk, Index: i, FileName: doc.Name}
	}

	messages := append(s.sessions.Messages(sessionID), models.Message{
		Role:      models.RoleUser,
		Content:   fmt.Sprintf("Summarizing the uploaded %s document using its content. Highlight main sections, topics, and key takeaways.", doc.Name),
		Timestamp: time.Now().UTC(),
		Sources:   sources,
	})
	if err := s.sessions.SaveMessages(sessionID, messages); err != nil {
		log.Printf("session %s: failed to record upload prompt: %v", sessionID, err)
	}
}

// Ask answers a question against every embedded document of the session.
// The question and the answer are appended to the session's messages, the
// answer carrying its top-K sources.
func (s *Service) Ask(ctx context.Context, sessionID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: empty question", models.ErrInvalidArgument)
	}

	if err := s.ensureEmbedModel(ctx); err != nil {
		return Answer{}, err
	}

	corpus := s.corpus(sessionID)
	if len(corpus) == 0 {
		return Answer{}, fmt.Errorf("%w: no embedded documents in session %s", models.ErrNotFound, sessionID)
	}

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	ranked := ranker.Rank(queryVec, corpus, s.config.AnswerTopK)
	sources := toSources(ranked)

	prompt := fmt.Sprintf("Use relevant information from the uploaded documents to answer the question. Sources will be shown below.\n\nContext:\n%s\n\nQuestion: %s",
		joinChunks(ranked), question)

	answer, err := s.chat.Complete(ctx, "", prompt)
	if err != nil {
		return Answer{}, err
	}

	now := time.Now().UTC()
	messages := append(s.sessions.Messages(sessionID),
		models.Message{Role: models.RoleUser, Content: question, Timestamp: now, Sources: sources},
		models.Message{Role: models.RoleAssistant, Content: answer, Timestamp: time.Now().UTC()},
	)
	if err := s.sessions.SaveMessages(sessionID, messages); err != nil {
		return Answer{}, err
	}

	return Answer{Answer: answer, Sources: sources}, nil
}

// Summarize generates a summary of one document, keyed by id or file name,
// from its leading chunks. The exchange is appended to the session.
func (s *Service) Summarize(ctx context.Context, sessionID, docKey string) (Answer, error) {
	var doc *models.Document
	for _, d := range s.sessions.Documents(sessionID) {
		if d.ID == docKey || d.Name == docKey {
			d := d
			doc = &d
			break
		}
	}
	if doc == nil {
		return Answer{}, fmt.Errorf("%w: document %s", models.ErrNotFound, docKey)
	}
	if !doc.Embedded() {
		return Answer{}, fmt.Errorf("%w: document %s has no retrieval data", models.ErrNotFound, docKey)
	}

	top := doc.Chunks
	if len(top) > s.config.SummaryTopK {
		top = top[:s.config.SummaryTopK]
	}

	sources := make([]models.Source, len(top))
	for i, chunk := range top {
		sources[i] = models.Source{Text: chunk, Index: i, FileName: doc.Name}
	}

	prompt := fmt.Sprintf("Summarize the uploaded document below. Highlight main sections, topics, and key takeaways.\n\n%s",
		strings.Join(top, "\n\n"))

	answer, err := s.chat.Complete(ctx, "", prompt)
	if err != nil {
		return Answer{}, err
	}

	now := time.Now().UTC()
	messages := append(s.sessions.Messages(sessionID),
		models.Message{
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("Summarizing the uploaded %s document using its content.", doc.Name),
			Timestamp: now,
			Sources:   sources,
		},
		models.Message{Role: models.RoleAssistant, Content: answer, Timestamp: time.Now().UTC()},
	)
	if err := s.sessions.SaveMessages(sessionID, messages); err != nil {
		return Answer{}, err
	}

	return Answer{Answer: answer, Sources: sources}, nil
}

// Search returns the session's best-matching snippets for a query without
// touching the conversation.
func (s *Service) Search(ctx context.Context, sessionID, query string) ([]models.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", models.ErrInvalidArgument)
	}

	corpus := s.corpus(sessionID)
	if len(corpus) == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return toSources(ranker.Rank(queryVec, corpus, s.config.SearchTopK)), nil
}

// corpus flattens every embedded document of the session into ranker
// entries. Documents without usable retrieval data are skipped.
func (s *Service) corpus(sessionID string) []ranker.Entry {
	var entries []ranker.Entry
	for _, doc := range s.sessions.Documents(sessionID) {
		if !doc.Embedded() {
			log.Printf("session %s: document %s has no embeddings, skipping", sessionID, doc.Name)
			continue
		}
		for i, vec := range doc.Embeddings {
			entries = append(entries, ranker.Entry{
				Vector:   vec,
				Chunk:    doc.Chunks[i],
				FileName: doc.Name,
				Index:    len(entries),
			})
		}
	}
	return entries
}

func (s *Service) ensureEmbedModel(ctx context.Context) error {
	if s.manager == nil {
		return nil
	}
	return s.manager.EnsureModel(ctx, s.config.EmbedModel, s.config.Confirm, s.config.Events)
}

func toSources(ranked []ranker.Result) []models.Source {
	sources := make([]models.Source, len(ranked))
	for i, r := range ranked {
		sources[i] = models.Source{
			Text:     r.Chunk,
			Index:    r.Index,
			FileName: r.FileName,
			Score:    r.Score,
		}
	}
	return sources
}

func joinChunks(ranked []ranker.Result) string {
	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, r.Chunk)
	}
	return strings.Join(parts, "\n\n")
}
