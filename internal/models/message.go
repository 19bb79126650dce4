package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single entry in a session's conversation. Ids are assigned
// once and never change; ordering within a session is conversation order.
type Message struct {
	ID        string     `json:"id,omitempty"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp,omitempty"`
	Sources   []Source   `json:"sources,omitempty"`
	MediaFile *MediaFile `json:"mediaFile,omitempty"`
}

// Source is a snippet cited by a RAG answer.
type Source struct {
	Text     string  `json:"text"`
	Index    int     `json:"index"`
	FileName string  `json:"fileName"`
	Score    float64 `json:"score,omitempty"`
}

// Media file types.
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// MediaFile describes a classified attachment stored under a session's
// typed media folder. FileName is the on-disk name, disambiguated with a
// timestamp suffix when it would collide with an existing file.
type MediaFile struct {
	FileName     string    `json:"fileName"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	FileType     string    `json:"fileType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}
