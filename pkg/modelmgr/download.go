package modelmgr

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/snapthinkllm/snapthinkllm/internal/models"
)

var progressRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// DownloadJob is a single owned model download: an external `pull` process
// whose output is parsed incrementally into status events. A job runs at
// most once; Cancel terminates the process and discards partial state.
type DownloadJob struct {
	Model  string
	binary string

	mu        sync.Mutex
	cmd       *exec.Cmd
	cancelled bool
}

func NewDownloadJob(binary, model string) *DownloadJob {
	if binary == "" {
		binary = "ollama"
	}
	return &DownloadJob{Model: model, binary: binary}
}

// Run blocks until the download finishes, fails, or is cancelled. Events,
// when non-nil, receive starting/downloading/done/error transitions. A
// non-zero process exit yields models.ErrModelUnavailable; a cancelled job
// returns nil with no done event.
func (j *DownloadJob) Run(ctx context.Context, events chan<- models.DownloadStatus) error {
	j.emit(events, models.DownloadStatus{Model: j.Model, State: models.DownloadStarting})

	pr, pw := io.Pipe()

	j.mu.Lock()
	if j.cancelled {
		j.mu.Unlock()
		return nil
	}
	j.cmd = exec.CommandContext(ctx, j.binary, "pull", j.Model)
	j.cmd.Stdout = pw
	j.cmd.Stderr = pw
	if err := j.cmd.Start(); err != nil {
		j.mu.Unlock()
		return fmt.Errorf("%w: starting download: %v", models.ErrModelUnavailable, err)
	}
	j.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Split(scanLinesAndReturns)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			status := models.DownloadStatus{
				Model:  j.Model,
				State:  models.DownloadDownloading,
				Detail: line,
			}
			if pct, ok := ParseProgress(line); ok {
				status.Progress = pct
			}
			j.emit(events, status)
		}
	}()

	err := j.cmd.Wait()
	pw.Close()
	<-done

	j.mu.Lock()
	cancelled := j.cancelled
	j.cmd = nil
	j.mu.Unlock()

	if cancelled {
		return nil
	}
	if err != nil {
		j.emit(events, models.DownloadStatus{
			Model:  j.Model,
			State:  models.DownloadError,
			Detail: err.Error(),
		})
		return fmt.Errorf("%w: download of %s failed: %v", models.ErrModelUnavailable, j.Model, err)
	}

	j.emit(events, models.DownloadStatus{Model: j.Model, State: models.DownloadDone, Progress: 100})
	return nil
}

// Cancel terminates the external process. The job reports no further
// progress and Run returns nil.
func (j *DownloadJob) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
	if j.cmd != nil && j.cmd.Process != nil {
		j.cmd.Process.Kill()
	}
}

func (j *DownloadJob) emit(events chan<- models.DownloadStatus, status models.DownloadStatus) {
	if events == nil {
		return
	}
	events <- status
}

// ParseProgress extracts a percentage from one line of pull output, e.g.
// "pulling 8934d96d3f08...  42% 2.0 GB/4.7 GB 52 MB/s".
func ParseProgress(line string) (float64, bool) {
	match := progressRe.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

// scanLinesAndReturns splits on both \n and \r. Pull progress redraws its
// line with carriage returns, so a plain line scanner would sit on one
// giant token until the download ends.
func scanLinesAndReturns(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
