package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"

	"github.com/solatis/formkeeper/internal/core/db"
	"github.com/solatis/formkeeper/internal/types"
)

// SQL is a Repository backed by SQLite or PostgreSQL. The schema comes from
// the embedded migrations; run db.MigrateUp first.
type SQL struct {
	db      *sqlx.DB
	queries *db.Queries
	opts    options
}

var _ Repository = (*SQL)(nil)

// NewSQL wraps an open database.
func NewSQL(database *sqlx.DB, queries *db.Queries, opts ...Option) *SQL {
	return &SQL{db: database, queries: queries, opts: newOptions(opts)}
}

type formRow struct {
	FormID      string `db:"form_id"`
	ProgramID   string `db:"program_id"`
	Title       string `db:"title"`
	Payload     string `db:"payload"`
	ETag        string `db:"etag"`
	Revision    int    `db:"revision"`
	CreatedAtMs int64  `db:"created_at_ms"`
	UpdatedAtMs int64  `db:"updated_at_ms"`
}

func (r formRow) record() *Record {
	return &Record{
		ID:        types.FormID(r.FormID),
		ProgramID: r.ProgramID,
		Title:     r.Title,
		Payload:   []byte(r.Payload),
		ETag:      r.ETag,
		Revision:  r.Revision,
		CreatedAt: time.UnixMilli(r.CreatedAtMs).UTC(),
		UpdatedAt: time.UnixMilli(r.UpdatedAtMs).UTC(),
	}
}

type revisionRow struct {
	FormID    string `db:"form_id"`
	Revision  int    `db:"revision"`
	ETag      string `db:"etag"`
	Payload   string `db:"payload"`
	SavedAtMs int64  `db:"saved_at_ms"`
}

func (s *SQL) Save(ctx context.Context, form *types.Form, etag string) (*Record, error) {
	enc, err := encode(form)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()
	q := s.queries.WithTx(tx)

	var current formRow
	err = q.Get(ctx, "get-form", &current, string(enc.id))
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return nil, goerr.Wrap(err, "failed to load form", goerr.V("form_id", enc.id))
	}
	if err := checkETag(enc.id, etag, current.ETag); err != nil {
		return nil, err
	}

	now := s.opts.now().UTC()
	row := formRow{
		FormID:      string(enc.id),
		ProgramID:   enc.programID,
		Title:       enc.title,
		Payload:     string(enc.payload),
		ETag:        enc.etag,
		Revision:    1,
		CreatedAtMs: now.UnixMilli(),
		UpdatedAtMs: now.UnixMilli(),
	}

	if exists {
		row.Revision = current.Revision + 1
		row.CreatedAtMs = current.CreatedAtMs
		res, err := q.Exec(ctx, "update-form",
			row.ProgramID, row.Title, row.Payload, row.ETag, row.Revision, row.UpdatedAtMs,
			row.FormID, current.ETag)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to update form", goerr.V("form_id", enc.id))
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, goerr.Wrap(ErrConflict, "form changed during save", goerr.V("form_id", enc.id))
		}
	} else {
		_, err := q.Exec(ctx, "insert-form",
			row.FormID, row.ProgramID, row.Title, row.Payload, row.ETag, row.Revision,
			row.CreatedAtMs, row.UpdatedAtMs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to insert form", goerr.V("form_id", enc.id))
		}
	}

	_, err = q.Exec(ctx, "insert-revision", row.FormID, row.Revision, row.ETag, row.Payload, now.UnixMilli())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record revision", goerr.V("form_id", enc.id))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit save", goerr.V("form_id", enc.id))
	}
	return row.record(), nil
}

func (s *SQL) Get(ctx context.Context, id types.FormID) (*Record, error) {
	if _, err := types.ParseFormID(string(id)); err != nil {
		return nil, goerr.Wrap(ErrNotFound, "form ID is not a UUID", goerr.V("form_id", id))
	}
	var row formRow
	err := s.queries.Get(ctx, "get-form", &row, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "form not found", goerr.V("form_id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load form", goerr.V("form_id", id))
	}
	return row.record(), nil
}

func (s *SQL) List(ctx context.Context, programID string) ([]*Record, error) {
	var rows []formRow
	var err error
	if programID == "" {
		err = s.queries.Select(ctx, "list-forms", &rows)
	} else {
		err = s.queries.Select(ctx, "list-forms-by-program", &rows, programID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list forms", goerr.V("program_id", programID))
	}

	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (s *SQL) Delete(ctx context.Context, id types.FormID) error {
	if _, err := types.ParseFormID(string(id)); err != nil {
		return goerr.Wrap(ErrNotFound, "form ID is not a UUID", goerr.V("form_id", id))
	}
	res, err := s.queries.Exec(ctx, "delete-form", string(id))
	if err != nil {
		return goerr.Wrap(err, "failed to delete form", goerr.V("form_id", id))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to delete form", goerr.V("form_id", id))
	}
	if n == 0 {
		return goerr.Wrap(ErrNotFound, "form not found", goerr.V("form_id", id))
	}
	return nil
}

func (s *SQL) Revisions(ctx context.Context, id types.FormID) ([]Revision, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var rows []revisionRow
	if err := s.queries.Select(ctx, "list-revisions", &rows, string(id)); err != nil {
		return nil, goerr.Wrap(err, "failed to list revisions", goerr.V("form_id", id))
	}
	out := make([]Revision, 0, len(rows))
	for _, r := range rows {
		out = append(out, Revision{
			FormID:   types.FormID(r.FormID),
			Revision: r.Revision,
			ETag:     r.ETag,
			Payload:  []byte(r.Payload),
			SavedAt:  time.UnixMilli(r.SavedAtMs).UTC(),
		})
	}
	return out, nil
}
