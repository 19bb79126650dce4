package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"

	"github.com/gorilla/websocket"
	"github.com/snapthinkllm/snapthinkllm/internal/models"
	"github.com/snapthinkllm/snapthinkllm/pkg/chunker"
	cfgPkg "github.com/snapthinkllm/snapthinkllm/pkg/config"
	"github.com/snapthinkllm/snapthinkllm/pkg/llm"
	"github.com/snapthinkllm/snapthinkllm/pkg/migrate"
	"github.com/snapthinkllm/snapthinkllm/pkg/modelmgr"
	"github.com/snapthinkllm/snapthinkllm/pkg/rag"
	"github.com/snapthinkllm/snapthinkllm/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only, not exposed beyond loopback
	},
}

// Message is the WebSocket envelope shared by both directions.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Server exposes the notebook engine to a local UI over HTTP and
// WebSocket: session CRUD, messages, document upload, ask/search,
// model inventory and downloads with streamed progress.
type Server struct {
	config    *cfgPkg.Config
	notebooks *store.NotebookStore
	chats     *store.ChatStore
	engine    *rag.Service
	manager   *modelmgr.Manager
}

func New(config *cfgPkg.Config) (*Server, error) {
	notebooks, err := store.NewNotebookStore(config.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notebook store: %w", err)
	}
	chats, err := store.NewChatStore(config.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat store: %w", err)
	}

	chatEngine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       config.LLM.ChatModel,
		MaxTokens:   config.LLM.MaxTokens,
		BaseURL:     config.LLM.BaseURL,
		Temperature: config.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     config.LLM.EmbedModel,
		BaseURL:   config.LLM.BaseURL,
		RateLimit: config.RAG.EmbedRateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ch, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		WindowSize: config.Chunker.WindowSize,
		Overlap:    config.Chunker.Overlap,
	})
	if err != nil {
		return nil, err
	}

	manager := modelmgr.NewWithConfig(modelmgr.ManagerConfig{
		Binary:       config.Models.Binary,
		AutoDownload: config.Models.AutoDownload,
	})

	engine := rag.NewWithConfig(rag.ServiceConfig{
		SummaryTopK: config.RAG.SummaryTopK,
		AnswerTopK:  config.RAG.AnswerTopK,
		SearchTopK:  config.RAG.SearchTopK,
		EmbedModel:  config.LLM.EmbedModel,
	}, notebooks, embedder, chatEngine, manager, ch)

	return &Server{
		config:    config,
		notebooks: notebooks,
		chats:     chats,
		engine:    engine,
		manager:   manager,
	}, nil
}

// Handler builds the route table. Every handler degrades to an error
// payload; nothing here panics the host process.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/notebooks", s.handleListNotebooks)
	mux.HandleFunc("POST /api/notebooks", s.handleCreateNotebook)
	mux.HandleFunc("GET /api/notebooks/{id}", s.handleGetNotebook)
	mux.HandleFunc("DELETE /api/notebooks/{id}", s.handleDeleteNotebook)
	mux.HandleFunc("PUT /api/notebooks/{id}/title", s.handleRenameNotebook)
	mux.HandleFunc("GET /api/notebooks/{id}/messages", s.handleGetMessages)
	mux.HandleFunc("PUT /api/notebooks/{id}/messages", s.handleSaveMessages)
	mux.HandleFunc("GET /api/notebooks/{id}/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/notebooks/{id}/documents", s.handleUploadDocument)
	mux.HandleFunc("DELETE /api/notebooks/{id}/documents/{key}", s.handleRemoveDocument)
	mux.HandleFunc("POST /api/notebooks/{id}/ask", s.handleAsk)
	mux.HandleFunc("POST /api/notebooks/{id}/search", s.handleSearch)
	mux.HandleFunc("POST /api/notebooks/{id}/summarize", s.handleSummarize)
	mux.HandleFunc("GET /api/notebooks/{id}/export", s.handleExport)
	mux.HandleFunc("POST /api/notebooks/import", s.handleImport)
	mux.HandleFunc("POST /api/migrate", s.handleMigrate)
	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("GET /api/hardware", s.handleHardware)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// ListenAndServe runs the server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("starting API server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleListNotebooks(w http.ResponseWriter, r *http.Request) {
	list, err := s.notebooks.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateNotebook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}
	meta, err := s.notebooks.Create(req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) handleGetNotebook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.notebooks.Load(r.PathValue("id")))
}

func (s *Server) handleDeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := s.notebooks.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameNotebook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeError(w, fmt.Errorf("%w: title required", models.ErrInvalidArgument))
		return
	}
	if err := s.notebooks.Rename(r.PathValue("id"), req.Title); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": s.notebooks.Messages(r.PathValue("id")),
	})
}

func (s *Server) handleSaveMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}
	if err := s.notebooks.SaveMessages(r.PathValue("id"), req.Messages); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.notebooks.ListDocuments(r.PathValue("id"))
	summaries := make([]models.DocSummary, 0, len(docs))
	for _, d := range docs {
		summaries = append(summaries, models.DocSummary{ID: d.ID, Name: d.Name, Ext: d.Ext})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: file field required", models.ErrInvalidArgument))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := s.engine.UploadDocument(r.Context(), r.PathValue("id"), header.Filename, data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.notebooks.RemoveDocument(r.PathValue("id"), r.PathValue("key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}
	answer, err := s.engine.Ask(r.Context(), r.PathValue("id"), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}
	results, err := s.engine.Search(r.Context(), r.PathValue("id"), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID string `json:"docId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err))
		return
	}
	answer, err := s.engine.Summarize(r.Context(), r.PathValue("id"), req.DocID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := s.notebooks.Export(id, &buf); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".snap"))
	w.Write(buf.Bytes())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	meta, warning, err := s.notebooks.Import(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"notebook": meta,
		"warning":  warning,
	})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	result, err := migrate.New(s.chats, s.notebooks, force).MigrateAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := s.manager.Inventory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HardwareInfo is what the UI's model selector needs to pick a sensible
// default model size.
type HardwareInfo struct {
	CPUCount int    `json:"cpuCount"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
}

func (s *Server) handleHardware(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HardwareInfo{
		CPUCount: runtime.NumCPU(),
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("error unmarshaling message: %v", err)
			continue
		}

		s.handleMessage(r, conn, msg)
	}
}

func (s *Server) handleMessage(r *http.Request, conn *websocket.Conn, msg Message) {
	switch msg.Type {
	case "ask":
		sessionID, _ := msg.Data.(string)
		if sessionID == "" {
			s.sendMessage(conn, "error", "ask requires a session id in data")
			return
		}
		s.sendMessage(conn, "status", "Searching documents...")
		answer, err := s.engine.Ask(r.Context(), sessionID, msg.Content)
		if err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		s.send(conn, Message{Type: "sources", Data: answer.Sources})
		s.sendMessage(conn, "response", answer.Answer)

	case "download-model":
		events := make(chan models.DownloadStatus)
		done := make(chan error, 1)
		go func() {
			done <- s.manager.EnsureModel(r.Context(), msg.Content,
				func(string) bool { return true }, events)
			close(events)
		}()
		for status := range events {
			s.send(conn, Message{Type: "download", Data: status})
		}
		if err := <-done; err != nil {
			s.sendMessage(conn, "error", err.Error())
			return
		}
		s.sendMessage(conn, "status", fmt.Sprintf("Model %s ready", msg.Content))

	default:
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("error sending message: %v", err)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	s.send(conn, Message{Type: msgType, Content: content})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrModelUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
