package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/logging"
	"github.com/solatis/formkeeper/internal/types"
)

func summary(rec *store.Record) map[string]any {
	return map[string]any{
		"form_id":    string(rec.ID),
		"program_id": rec.ProgramID,
		"title":      rec.Title,
		"etag":       rec.ETag,
		"revision":   rec.Revision,
		"created_at": rec.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formID(in *structpb.Struct) (types.FormID, error) {
	id := stringField(in, "form_id")
	if id == "" {
		return "", goerr.Wrap(ErrInvalidRequest, "form_id is required")
	}
	return types.FormID(id), nil
}

// SaveForm normalizes and stores a form. Pass the ETag from the last read to
// detect concurrent edits; omit it to overwrite.
//
//	request:  {"form": {...}, "etag": "..."}
//	response: {"form_id", "etag", "revision", ..., "diagnostics": [...]}
func (s *FormService) SaveForm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := objectField(in, "form")
	if err != nil {
		return nil, Status(err)
	}
	if raw == nil {
		return nil, Status(goerr.Wrap(ErrInvalidRequest, "form is required"))
	}

	form, diags, err := normalizeForm(ctx, raw)
	if err != nil {
		return nil, Status(err)
	}

	rec, err := s.repo.Save(ctx, form, stringField(in, "etag"))
	if err != nil {
		return nil, Status(err)
	}
	s.journal.Append(ctx, rec)
	logging.From(ctx).Info("form saved",
		"form_id", rec.ID, "revision", rec.Revision, "fields", form.FieldCount())

	resp := summary(rec)
	resp["diagnostics"] = stringList(diags.Strings())
	out, err := newStruct(resp)
	return out, Status(err)
}

// GetForm returns the stored form.
//
//	request:  {"form_id": "..."}
//	response: {"form_id", "etag", "revision", ..., "form": {...}}
func (s *FormService) GetForm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := formID(in)
	if err != nil {
		return nil, Status(err)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, Status(err)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, Status(goerr.Wrap(err, "stored payload is not a JSON object", goerr.V("form_id", id)))
	}
	resp := summary(rec)
	resp["form"] = payload
	out, err := newStruct(resp)
	return out, Status(err)
}

// ListForms lists stored forms, optionally for one program.
//
//	request:  {"program_id": "..."}
//	response: {"forms": [{"form_id", "title", ...}]}
func (s *FormService) ListForms(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	recs, err := s.repo.List(ctx, stringField(in, "program_id"))
	if err != nil {
		return nil, Status(err)
	}
	forms := make([]any, len(recs))
	for i, rec := range recs {
		forms[i] = summary(rec)
	}
	out, err := newStruct(map[string]any{"forms": forms})
	return out, Status(err)
}

// DeleteForm removes a form and its history.
//
//	request:  {"form_id": "..."}
//	response: {}
func (s *FormService) DeleteForm(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := formID(in)
	if err != nil {
		return nil, Status(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, Status(err)
	}
	logging.From(ctx).Info("form deleted", "form_id", id)
	return &structpb.Struct{}, nil
}
