package models

import "time"

// ChatRecord is the flat legacy session shape: everything lives in a single
// chat.json at the session root. Fields the caller does not touch must be
// round-tripped untouched on whole-file rewrites.
type ChatRecord struct {
	Messages []Message    `json:"messages"`
	Docs     []DocSummary `json:"docs"`
}

// Plugins lists the features enabled for a notebook.
type Plugins struct {
	Enabled  []string          `json:"enabled"`
	Settings map[string]string `json:"settings"`
}

// Stats are derived counters. They are recomputed on load and never
// treated as authoritative.
type Stats struct {
	TotalMessages int       `json:"totalMessages"`
	TotalTokens   int       `json:"totalTokens"`
	TotalFiles    int       `json:"totalFiles"`
	LastActive    time.Time `json:"lastActive,omitempty"`
}

// Migration records where a migrated notebook originated from.
type Migration struct {
	OriginalChatID string    `json:"originalChatId"`
	MigratedAt     time.Time `json:"migratedAt"`
	Version        string    `json:"version"`
}

// NotebookMeta is the notebook.json payload: session identity plus
// user-editable metadata. Messages live in a sibling messages.json.
type NotebookMeta struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Model       string     `json:"model,omitempty"`
	Plugins     Plugins    `json:"plugins"`
	Stats       Stats      `json:"stats"`
	Migration   *Migration `json:"migration,omitempty"`
}

// NotebookFiles groups a notebook's stored files by type bucket.
type NotebookFiles struct {
	Docs    []DocSummary `json:"docs"`
	Images  []MediaFile  `json:"images"`
	Videos  []MediaFile  `json:"videos"`
	Outputs []MediaFile  `json:"outputs"`
}

// Notebook is a fully loaded notebook session.
type Notebook struct {
	Meta     NotebookMeta  `json:"metadata"`
	Messages []Message     `json:"messages"`
	Files    NotebookFiles `json:"files"`
}

// SessionSummary is a list entry for either session kind.
type SessionSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	Docs      int       `json:"docs"`
	Messages  int       `json:"messages"`
}
