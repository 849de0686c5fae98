package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/eppie/foresight/internal/model"
)

// Recorder appends forecast records to a newline-delimited JSON log.
// The log is append-only: each record is one UTF-8 JSON object written
// in a single O_APPEND write, so concurrent orchestrator runs
// interleave whole lines and never read-modify-write.
type Recorder struct {
	path string
	mu   sync.Mutex
}

// NewRecorder creates a Recorder writing to path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record appends one forecast record to the log.
func (r *Recorder) Record(record model.ForecastRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open forecast log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append forecast record: %w", err)
	}
	return nil
}
