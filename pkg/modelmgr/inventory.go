package modelmgr

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

// ManagerConfig represents the configuration for the model manager.
type ManagerConfig struct {
	Binary       string // model tool executable, normally "ollama"
	AutoDownload bool   // pull missing models without asking
}

// Manager inspects and downloads the provider's local models.
type Manager struct {
	config ManagerConfig
}

func NewWithConfig(config ManagerConfig) *Manager {
	if config.Binary == "" {
		config.Binary = "ollama"
	}
	return &Manager{config: config}
}

// Inventory lists the locally downloaded models by running `<binary> list`
// and parsing its columnar output.
func (m *Manager) Inventory(ctx context.Context) ([]models.ModelInfo, error) {
	out, err := exec.CommandContext(ctx, m.config.Binary, "list").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: listing models: %v", models.ErrModelUnavailable, err)
	}
	return ParseInventory(string(out)), nil
}

// ParseInventory parses the text table produced by `ollama list`:
//
//	NAME                  ID            SIZE    MODIFIED
//	llama3:8b             365c0bd3c000  4.7 GB  3 weeks ago
//
// The header line and rows that do not fit the column shape are skipped.
func ParseInventory(out string) []models.ModelInfo {
	var list []models.ModelInfo
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		if strings.EqualFold(fields[0], "NAME") {
			continue
		}

		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}

		sizeGB := value
		switch strings.ToUpper(fields[3]) {
		case "GB":
		case "MB":
			sizeGB = value / 1024
		case "KB":
			sizeGB = value / (1024 * 1024)
		default:
			continue
		}

		list = append(list, models.ModelInfo{
			Name:    fields[0],
			ID:      fields[1],
			SizeRaw: fields[2] + " " + fields[3],
			SizeGB:  sizeGB,
		})
	}
	return list
}

// HasModel reports whether name is present in the local inventory.
func (m *Manager) HasModel(ctx context.Context, name string) (bool, error) {
	list, err := m.Inventory(ctx)
	if err != nil {
		return false, err
	}
	for _, info := range list {
		if info.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// EnsureModel makes sure name is available locally. A missing model is
// pulled if AutoDownload is set or confirm approves it; otherwise the call
// fails with models.ErrModelUnavailable. Download progress is streamed to
// events when the channel is non-nil.
func (m *Manager) EnsureModel(ctx context.Context, name string, confirm func(model string) bool, events chan<- models.DownloadStatus) error {
	present, err := m.HasModel(ctx, name)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	if !m.config.AutoDownload {
		if confirm == nil || !confirm(name) {
			return fmt.Errorf("%w: %s is not downloaded", models.ErrModelUnavailable, name)
		}
	}

	job := NewDownloadJob(m.config.Binary, name)
	return job.Run(ctx, events)
}
