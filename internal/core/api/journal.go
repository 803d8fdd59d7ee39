package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/logging"
)

// Journal appends every saved revision to a per-day JSONL file.
// The database is the source of truth; the journal is a best-effort audit
// trail and may miss entries when a write fails.
type Journal struct {
	dir   string
	now   func() time.Time
	mu    sync.Mutex
	files map[string]*sync.Mutex
}

type journalEntry struct {
	FormID    string          `json:"form_id"`
	ProgramID string          `json:"program_id,omitempty"`
	Revision  int             `json:"revision"`
	ETag      string          `json:"etag"`
	SavedAt   string          `json:"saved_at"`
	Payload   json.RawMessage `json:"payload"`
}

// NewJournal creates dir if needed.
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create journal directory", goerr.V("dir", dir))
	}
	return &Journal{
		dir:   dir,
		now:   time.Now,
		files: make(map[string]*sync.Mutex),
	}, nil
}

// fileMutex returns the mutex guarding filename. The map grows by one entry
// per day.
func (j *Journal) fileMutex(filename string) *sync.Mutex {
	j.mu.Lock()
	defer j.mu.Unlock()
	m, ok := j.files[filename]
	if !ok {
		m = &sync.Mutex{}
		j.files[filename] = m
	}
	return m
}

// Path returns the journal file for the day containing t.
func (j *Journal) Path(t time.Time) string {
	return filepath.Join(j.dir, t.UTC().Format("2006-01-02")+".jsonl")
}

// Append writes rec to today's file. Failures are logged, not returned.
func (j *Journal) Append(ctx context.Context, rec *store.Record) {
	if err := j.append(rec); err != nil {
		logging.From(ctx).Warn("failed to journal form revision",
			"form_id", rec.ID, "revision", rec.Revision, "error", err)
	}
}

func (j *Journal) append(rec *store.Record) error {
	now := j.now().UTC()
	filename := j.Path(now)
	entry := journalEntry{
		FormID:    string(rec.ID),
		ProgramID: rec.ProgramID,
		Revision:  rec.Revision,
		ETag:      rec.ETag,
		SavedAt:   rec.UpdatedAt.UTC().Format(time.RFC3339),
		Payload:   json.RawMessage(rec.Payload),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return goerr.Wrap(err, "failed to encode journal entry")
	}
	line = append(line, '\n')

	m := j.fileMutex(filename)
	m.Lock()
	defer m.Unlock()

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return goerr.Wrap(err, "failed to open journal", goerr.V("file", filename))
	}
	defer f.Close()
	if _, err := f.Write(line); err != nil {
		return goerr.Wrap(err, "failed to write journal", goerr.V("file", filename))
	}
	return nil
}
