// internal/normalize/serialize.go
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/formkeeper/internal/rules"
	"github.com/solatis/formkeeper/internal/types"
)

/*
 * Canonical backend shape.
 *
 * Serialize is the inverse of Normalize for every step that has fields.
 * Fields carry an explicit step_key, and their order is kept consistent with
 * the bucket fallback (stepIndex*StepBucketSize + fieldIndex + 1) so a reader
 * that ignores step_key still groups them correctly.
 */

// Payload is the canonical backend representation of a form.
type Payload struct {
	ID           string         `json:"id,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	ProgramID    string         `json:"program_id,omitempty"`
	LayoutConfig LayoutConfig   `json:"layout_config"`
	Steps        []StepPayload  `json:"steps"`
	Fields       []FieldPayload `json:"fields"`
}

// LayoutConfig carries a column count.
type LayoutConfig struct {
	Columns int `json:"columns"`
}

// StepPayload is step metadata. LayoutConfig is nil when the step inherits
// the form default.
type StepPayload struct {
	Key              string                  `json:"key"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description,omitempty"`
	PerParticipant   bool                    `json:"per_participant"`
	IsStatic         bool                    `json:"is_static"`
	LayoutConfig     *LayoutConfig           `json:"layout_config,omitempty"`
	ConditionalLogic *types.ConditionalLogic `json:"conditional_logic,omitempty"`
}

// FieldPayload is one serialized field.
type FieldPayload struct {
	ID               string                  `json:"id,omitempty"`
	FieldName        string                  `json:"field_name"`
	Label            string                  `json:"label"`
	FieldType        string                  `json:"field_type"`
	Required         bool                    `json:"required"`
	HelpText         string                  `json:"help_text,omitempty"`
	Placeholder      string                  `json:"placeholder,omitempty"`
	Validation       *types.Constraints      `json:"validation,omitempty"`
	Options          []string                `json:"options,omitempty"`
	Order            int                     `json:"order"`
	ColumnSpan       int                     `json:"column_span"`
	ConditionalLogic *types.ConditionalLogic `json:"conditional_logic,omitempty"`
	StepKey          string                  `json:"step_key"`
	IsStatic         bool                    `json:"is_static"`
}

// Serialize maps a form to the backend shape. Steps without a key (or with a
// key already taken) receive a synthesized unique one.
func Serialize(form *types.Form) *Payload {
	if form == nil {
		return nil
	}
	p := &Payload{
		ID:           string(form.ID),
		Title:        form.Name,
		Description:  form.Description,
		ProgramID:    form.ProgramID,
		LayoutConfig: LayoutConfig{Columns: form.Columns},
		Steps:        make([]StepPayload, 0, len(form.Steps)),
		Fields:       make([]FieldPayload, 0, form.FieldCount()),
	}

	used := make(map[string]bool, len(form.Steps))
	for si, step := range form.Steps {
		key := step.Key
		if key == "" || used[key] {
			key = uniqueStepKey(si, used)
		}
		used[key] = true

		sp := StepPayload{
			Key:              key,
			Title:            step.Title,
			Description:      step.Description,
			PerParticipant:   step.PerParticipant,
			IsStatic:         step.Static,
			ConditionalLogic: persistedLogic(step.Logic),
		}
		if !step.InheritColumns {
			sp.LayoutConfig = &LayoutConfig{Columns: step.Columns}
		}
		p.Steps = append(p.Steps, sp)

		for fi, f := range step.Fields {
			fp := FieldPayload{
				ID:               string(f.ID),
				FieldName:        f.Name,
				Label:            f.Label,
				FieldType:        f.Kind.String(),
				Required:         f.Required,
				HelpText:         f.HelpText,
				Placeholder:      f.Placeholder,
				Options:          f.Options,
				Order:            si*types.StepBucketSize + fi + 1,
				ColumnSpan:       f.ColumnSpan,
				ConditionalLogic: persistedLogic(f.Logic),
				StepKey:          key,
				IsStatic:         f.Static,
			}
			if !f.Constraints.IsZero() {
				c := f.Constraints
				fp.Validation = &c
			}
			p.Fields = append(p.Fields, fp)
		}
	}
	return p
}

// JSON encodes the payload.
func (p *Payload) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Map returns the payload as a generic JSON object.
func (p *Payload) Map() (map[string]any, error) {
	data, err := p.JSON()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func uniqueStepKey(index int, used map[string]bool) string {
	for n := index + 1; ; n++ {
		key := BucketKey(n)
		if !used[key] {
			return key
		}
	}
}

// persistedLogic drops malformed rules; rule sets left empty are omitted.
func persistedLogic(logic *types.ConditionalLogic) *types.ConditionalLogic {
	clean, _ := rules.Sanitize(logic)
	return clean
}

// Describe summarises a form for logs and CLI output.
func Describe(form *types.Form) string {
	if form == nil {
		return "no structure"
	}
	return fmt.Sprintf("%d step(s), %d field(s), %d column(s)", len(form.Steps), form.FieldCount(), form.Columns)
}
