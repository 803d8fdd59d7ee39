// Package store persists forms as canonical JSON documents.
//
// A saved form is a Record: the serialized payload plus an ETag (hex SHA-256
// of the payload) and a revision counter. Saves are optimistic: a caller
// passing the ETag it last read gets ErrConflict if someone saved in between.
// An empty ETag overwrites unconditionally.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/solatis/formkeeper/internal/normalize"
	"github.com/solatis/formkeeper/internal/types"
)

var (
	ErrNotFound    = goerr.New("form not found")
	ErrConflict    = goerr.New("form was modified concurrently")
	ErrInvalidForm = goerr.New("invalid form")
)

// Record is the current revision of a saved form.
type Record struct {
	ID        types.FormID
	ProgramID string
	Title     string
	Payload   []byte
	ETag      string
	Revision  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Form normalizes the stored payload back into a form.
func (r *Record) Form() (*types.Form, normalize.Diagnostics, error) {
	form, diags := normalize.Normalize(r.Payload)
	if form == nil {
		return nil, diags, goerr.Wrap(ErrInvalidForm, "stored payload has no usable structure",
			goerr.V("form_id", r.ID), goerr.V("diagnostics", diags.Strings()))
	}
	return form, diags, nil
}

// Revision is one historical save of a form.
type Revision struct {
	FormID   types.FormID
	Revision int
	ETag     string
	Payload  []byte
	SavedAt  time.Time
}

// Repository stores forms.
type Repository interface {
	// Save inserts or updates a form. A form without ID gets a new one.
	Save(ctx context.Context, form *types.Form, etag string) (*Record, error)
	Get(ctx context.Context, id types.FormID) (*Record, error)
	// List returns forms ordered by ID; an empty programID lists all.
	List(ctx context.Context, programID string) ([]*Record, error)
	Delete(ctx context.Context, id types.FormID) error
	// Revisions returns every saved revision, oldest first.
	Revisions(ctx context.Context, id types.FormID) ([]Revision, error)
}

// ComputeETag returns the hex SHA-256 of a payload. Identical payloads
// always produce the same ETag.
func ComputeETag(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Option configures a repository.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// encoded is a form ready to be written.
type encoded struct {
	id        types.FormID
	programID string
	title     string
	payload   []byte
	etag      string
}

// encode assigns an ID when missing and serializes the form.
func encode(form *types.Form) (*encoded, error) {
	if form == nil {
		return nil, goerr.Wrap(ErrInvalidForm, "form is nil")
	}
	if form.FieldCount() == 0 {
		return nil, goerr.Wrap(ErrInvalidForm, "form has no fields")
	}

	form = form.Clone()
	if form.ID == "" {
		form.ID = types.NewFormID()
	} else if _, err := types.ParseFormID(string(form.ID)); err != nil {
		return nil, goerr.Wrap(ErrInvalidForm, "form ID is not a UUID", goerr.V("form_id", form.ID))
	}

	payload, err := normalize.Serialize(form).JSON()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize form", goerr.V("form_id", form.ID))
	}
	return &encoded{
		id:        form.ID,
		programID: form.ProgramID,
		title:     form.Name,
		payload:   payload,
		etag:      ComputeETag(payload),
	}, nil
}

// checkETag applies the optimistic concurrency rule. current is empty when
// the form does not exist yet.
func checkETag(id types.FormID, given, current string) error {
	if given == "" || given == current {
		return nil
	}
	return goerr.Wrap(ErrConflict, "etag mismatch",
		goerr.V("form_id", id), goerr.V("given", given), goerr.V("current", current))
}
