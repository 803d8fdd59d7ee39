package api

import (
	"bytes"
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/formkeeper/internal/core/store"
	"github.com/solatis/formkeeper/internal/logging"
	"github.com/solatis/formkeeper/internal/normalize"
	"github.com/solatis/formkeeper/internal/preview"
	"github.com/solatis/formkeeper/internal/types"
)

// normalizeForm rebuilds a form from a raw payload. A payload with no usable
// field is rejected.
func normalizeForm(ctx context.Context, raw map[string]any) (*types.Form, normalize.Diagnostics, error) {
	form, diags := normalize.NormalizeValue(raw)
	if len(diags) > 0 {
		logging.From(ctx).Debug("payload repaired", "diagnostics", diags)
	}
	if form == nil {
		return nil, diags, goerr.Wrap(store.ErrInvalidForm, "payload has no usable fields",
			goerr.V("diagnostics", diags.Strings()))
	}
	return form, diags, nil
}

// Normalize converts a loose payload into the canonical shape.
//
//	request:  {"form": {...}}
//	response: {"form": {...}, "diagnostics": [...], "summary": "..."}
func (s *FormService) Normalize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
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
	payload, err := normalize.Serialize(form).Map()
	if err != nil {
		return nil, Status(goerr.Wrap(err, "failed to serialize form"))
	}

	out, err := newStruct(map[string]any{
		"form":        payload,
		"diagnostics": stringList(diags.Strings()),
		"summary":     normalize.Describe(form),
	})
	return out, Status(err)
}

// PreviewRequest selects a form and the answers to evaluate it against.
// Form takes precedence over FormID.
type PreviewRequest struct {
	Form    map[string]any
	FormID  types.FormID
	Answers types.Answers
	Page    int
}

// PreviewResult is one rendered page.
type PreviewResult struct {
	HTML        []byte
	Page        int // clamped into the visible steps
	Pages       int
	HiddenSteps []string
	Diagnostics normalize.Diagnostics
}

// RenderPreview renders page req.Page of the preview as HTML.
func (s *FormService) RenderPreview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	var form *types.Form
	var diags normalize.Diagnostics
	var err error

	switch {
	case req.Form != nil:
		form, diags, err = normalizeForm(ctx, req.Form)
	case req.FormID != "":
		var rec *store.Record
		rec, err = s.repo.Get(ctx, req.FormID)
		if err == nil {
			form, diags, err = rec.Form()
		}
	default:
		err = goerr.Wrap(ErrInvalidRequest, "form or form_id is required")
	}
	if err != nil {
		return nil, err
	}

	p := preview.Render(form, req.Answers)
	pager := preview.NewPager(len(p.Steps))
	page := pager.Go(req.Page)

	var buf bytes.Buffer
	if err := preview.WriteHTML(&buf, p, page); err != nil {
		return nil, goerr.Wrap(err, "failed to render preview", goerr.V("form_id", form.ID))
	}
	return &PreviewResult{
		HTML:        buf.Bytes(),
		Page:        page,
		Pages:       pager.Count(),
		HiddenSteps: p.HiddenSteps,
		Diagnostics: diags,
	}, nil
}

// Preview renders one page of a form.
//
//	request:  {"form": {...}} or {"form_id": "..."}, plus "answers" and "page"
//	response: {"html": "...", "page": n, "pages": n, "hidden_steps": [...]}
func (s *FormService) Preview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	raw, err := objectField(in, "form")
	if err != nil {
		return nil, Status(err)
	}
	answers, err := objectField(in, "answers")
	if err != nil {
		return nil, Status(err)
	}

	res, err := s.RenderPreview(ctx, PreviewRequest{
		Form:    raw,
		FormID:  types.FormID(stringField(in, "form_id")),
		Answers: types.Answers(answers),
		Page:    int(in.GetFields()["page"].GetNumberValue()),
	})
	if err != nil {
		return nil, Status(err)
	}

	out, err := newStruct(map[string]any{
		"html":         string(res.HTML),
		"page":         res.Page,
		"pages":        res.Pages,
		"hidden_steps": stringList(res.HiddenSteps),
		"diagnostics":  stringList(res.Diagnostics.Strings()),
	})
	return out, Status(err)
}
