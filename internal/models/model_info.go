package models

// ModelInfo is one row of the provider's local model inventory.
type ModelInfo struct {
	Name    string  `json:"name"`
	ID      string  `json:"id"`
	SizeRaw string  `json:"sizeRaw"`
	SizeGB  float64 `json:"sizeInGB"`
}

// Download states emitted while a model is being pulled.
const (
	DownloadStarting    = "starting"
	DownloadDownloading = "downloading"
	DownloadDone        = "done"
	DownloadError       = "error"
)

// DownloadStatus is a single progress event from a model download job.
type DownloadStatus struct {
	Model    string  `json:"model"`
	State    string  `json:"state"`
	Progress float64 `json:"progress,omitempty"`
	Detail   string  `json:"detail,omitempty"`
}
