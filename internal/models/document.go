package models

import "time"

// Document is a parsed upload together with its retrieval artifacts.
// Chunks and Embeddings are parallel arrays: whenever embedding completed,
// len(Chunks) == len(Embeddings), and a chunk whose embedding failed is
// removed from both at the same index.
type Document struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Ext        string      `json:"ext"`
	Size       int64       `json:"size"`
	UploadedAt time.Time   `json:"uploadedAt"`
	Chunks     []string    `json:"chunks,omitempty"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
}

// Embedded reports whether the document carries usable retrieval data.
func (d *Document) Embedded() bool {
	return len(d.Chunks) > 0 && len(d.Chunks) == len(d.Embeddings)
}

// DocSummary is the manifest entry for a stored document.
type DocSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ext  string `json:"ext"`
}
