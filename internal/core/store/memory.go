package store

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/solatis/formkeeper/internal/types"
)

// Memory is an in-process Repository for tests and single-user authoring.
type Memory struct {
	mu        sync.RWMutex
	records   map[types.FormID]*Record
	revisions map[types.FormID][]Revision
	opts      options
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty repository.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		records:   make(map[types.FormID]*Record),
		revisions: make(map[types.FormID][]Revision),
		opts:      newOptions(opts),
	}
}

func copyRecord(r *Record) *Record {
	out := *r
	out.Payload = append([]byte(nil), r.Payload...)
	return &out
}

func (m *Memory) Save(ctx context.Context, form *types.Form, etag string) (*Record, error) {
	enc, err := encode(form)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.now().UTC()
	current, exists := m.records[enc.id]
	var currentETag string
	if exists {
		currentETag = current.ETag
	}
	if err := checkETag(enc.id, etag, currentETag); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:        enc.id,
		ProgramID: enc.programID,
		Title:     enc.title,
		Payload:   enc.payload,
		ETag:      enc.etag,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if exists {
		rec.Revision = current.Revision + 1
		rec.CreatedAt = current.CreatedAt
	}
	m.records[enc.id] = rec
	m.revisions[enc.id] = append(m.revisions[enc.id], Revision{
		FormID:   enc.id,
		Revision: rec.Revision,
		ETag:     rec.ETag,
		Payload:  enc.payload,
		SavedAt:  now,
	})
	return copyRecord(rec), nil
}

func (m *Memory) Get(ctx context.Context, id types.FormID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "form not found", goerr.V("form_id", id))
	}
	return copyRecord(rec), nil
}

func (m *Memory) List(ctx context.Context, programID string) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		if programID != "" && rec.ProgramID != programID {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id types.FormID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return goerr.Wrap(ErrNotFound, "form not found", goerr.V("form_id", id))
	}
	delete(m.records, id)
	delete(m.revisions, id)
	return nil
}

func (m *Memory) Revisions(ctx context.Context, id types.FormID) ([]Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	revs, ok := m.revisions[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "form not found", goerr.V("form_id", id))
	}
	return append([]Revision(nil), revs...), nil
}
