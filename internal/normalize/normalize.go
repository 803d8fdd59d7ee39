// Package normalize converts loosely typed backend form payloads into the
// canonical step/field model, and serializes the model back.
//
// Normalization never fails on individual entries. Malformed fields, rules
// and steps are skipped or repaired, and every such decision is reported in
// the returned Diagnostics. A payload without usable fields yields a nil form.
package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/solatis/formkeeper/internal/layout"
	"github.com/solatis/formkeeper/internal/types"
)

// Diagnostic records one repair made while normalizing.
type Diagnostic struct {
	Path    string // location in the payload, e.g. "fields[3].conditional_logic"
	Message string
}

func (d Diagnostic) String() string {
	return d.Path + ": " + d.Message
}

// Diagnostics lists repairs in payload order.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(path, msg string) {
	*d = append(*d, Diagnostic{Path: path, Message: msg})
}

// Strings renders each diagnostic as "path: message".
func (d Diagnostics) Strings() []string {
	out := make([]string, len(d))
	for i, diag := range d {
		out[i] = diag.String()
	}
	return out
}

// LogValue implements slog.LogValuer.
func (d Diagnostics) LogValue() slog.Value {
	return slog.AnyValue(d.Strings())
}

// Normalize parses a JSON payload and reconstructs the form.
func Normalize(data []byte) (*types.Form, Diagnostics) {
	var diags Diagnostics
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		diags.add("$", "invalid JSON: "+err.Error())
		return nil, diags
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		diags.add("$", "payload is not an object")
		return nil, diags
	}
	return NormalizeValue(obj)
}

// NormalizeValue reconstructs the form from an already decoded payload.
func NormalizeValue(raw map[string]any) (*types.Form, Diagnostics) {
	var diags Diagnostics

	list, ok := raw["fields"].([]any)
	if !ok || len(list) == 0 {
		diags.add("fields", "absent or empty")
		return nil, diags
	}

	rec := parseForm(object(raw), &diags)
	if len(rec.fields) == 0 {
		diags.add("fields", "no usable field")
		return nil, diags
	}

	form := &types.Form{
		ID:          types.FormID(rec.id),
		Name:        rec.name,
		Description: rec.description,
		ProgramID:   rec.programID,
		Columns:     types.DefaultColumns,
	}
	if n, ok := layout.ResolveColumns(rec.columns); ok {
		form.Columns = n
	}

	var steps []types.Step
	var grouped [][]fieldRecord
	if len(rec.steps) > 0 {
		steps, grouped = assignByMetadata(rec, form.Columns, &diags)
	} else {
		steps, grouped = assignByBucket(rec.fields, form.Columns)
	}

	for i := range steps {
		if len(grouped[i]) == 0 {
			diags.add(fmt.Sprintf("steps[%q]", steps[i].Key), "no fields, dropped")
			continue
		}
		sort.SliceStable(grouped[i], func(a, b int) bool {
			return grouped[i][a].order < grouped[i][b].order
		})
		step := steps[i]
		seen := make(map[string]bool, len(grouped[i]))
		for _, fr := range grouped[i] {
			field := buildField(fr, step.Columns)
			if seen[field.Name] {
				diags.add(fmt.Sprintf("fields[%d]", fr.index), fmt.Sprintf("duplicate name %q in step %q", field.Name, step.Key))
			}
			seen[field.Name] = true
			step.Fields = append(step.Fields, field)
		}
		form.Steps = append(form.Steps, step)
	}

	if len(form.Steps) == 0 {
		diags.add("fields", "no field matched a step")
		return nil, diags
	}
	return form, diags
}

// Bucket returns the fallback step number for a field order:
// floor((order-1)/StepBucketSize)+1.
func Bucket(order int) int {
	return int(math.Floor(float64(order-1)/types.StepBucketSize)) + 1
}

// BucketKey returns the synthesized step key for a bucket.
func BucketKey(bucket int) string {
	return fmt.Sprintf("step-%d", bucket)
}

func assignByMetadata(rec formRecord, formColumns int, diags *Diagnostics) ([]types.Step, [][]fieldRecord) {
	steps := make([]types.Step, 0, len(rec.steps))
	byKey := make(map[string]int, len(rec.steps))
	for _, sr := range rec.steps {
		if _, dup := byKey[sr.key]; dup {
			diags.add(fmt.Sprintf("steps[%d]", sr.index), fmt.Sprintf("duplicate key %q, skipped", sr.key))
			continue
		}
		byKey[sr.key] = len(steps)
		steps = append(steps, buildStep(sr, formColumns))
	}

	grouped := make([][]fieldRecord, len(steps))
	for _, fr := range rec.fields {
		key := fr.stepKey
		if key == "" {
			key = BucketKey(Bucket(fr.order))
		}
		i, ok := byKey[key]
		if !ok {
			diags.add(fmt.Sprintf("fields[%d]", fr.index), fmt.Sprintf("no step %q, dropped", key))
			continue
		}
		grouped[i] = append(grouped[i], fr)
	}
	return steps, grouped
}

func assignByBucket(fields []fieldRecord, formColumns int) ([]types.Step, [][]fieldRecord) {
	buckets := map[int][]fieldRecord{}
	for _, fr := range fields {
		b := Bucket(fr.order)
		buckets[b] = append(buckets[b], fr)
	}
	order := make([]int, 0, len(buckets))
	for b := range buckets {
		order = append(order, b)
	}
	sort.Ints(order)

	steps := make([]types.Step, len(order))
	grouped := make([][]fieldRecord, len(order))
	for i, b := range order {
		steps[i] = types.Step{
			Key:            BucketKey(b),
			Title:          fmt.Sprintf("Additional Information %d", b),
			Columns:        formColumns,
			InheritColumns: true,
		}
		grouped[i] = buckets[b]
	}
	return steps, grouped
}

func buildStep(sr stepRecord, formColumns int) types.Step {
	step := types.Step{
		Key:            sr.key,
		Title:          sr.title,
		Description:    sr.description,
		Columns:        formColumns,
		InheritColumns: true,
		PerParticipant: sr.perParticipant,
		Logic:          sr.logic,
		Static:         sr.static,
	}
	if n, ok := layout.ResolveColumns(sr.columns); ok {
		step.Columns = n
		step.InheritColumns = false
	}
	if step.Title == "" {
		step.Title = fmt.Sprintf("Step %d", sr.index+1)
	}
	return step
}

func buildField(fr fieldRecord, columns int) types.Field {
	field := types.Field{
		ID:          types.FieldID(fr.id),
		Name:        fr.name,
		Label:       fr.label,
		Kind:        fr.kind,
		Required:    fr.required,
		HelpText:    fr.helpText,
		Placeholder: fr.placeholder,
		Constraints: fr.constraints,
		Options:     fr.options,
		Order:       fr.order,
		ColumnSpan:  layout.ResolveSpan(fr.span, columns),
		Logic:       fr.logic,
		Static:      fr.static,
	}
	if field.ID == "" {
		field.ID = types.NewFieldID()
	}
	if field.Name == "" {
		field.Name = fmt.Sprintf("field_%d", fr.index)
	}
	if field.Label == "" {
		field.Label = fmt.Sprintf("Field %d", fr.index+1)
	}
	return field
}
