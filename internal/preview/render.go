// Package preview renders a form read-only against a set of answers.
//
// Steps and fields whose rule sets evaluate false are skipped. Everything
// that is rendered is inert: controls are disabled and answers are only
// displayed, never modified.
package preview

import (
	"fmt"
	"strings"

	"github.com/solatis/formkeeper/internal/layout"
	"github.com/solatis/formkeeper/internal/rules"
	"github.com/solatis/formkeeper/internal/types"
)

// Control is the HTML input type used for a field kind.
type Control string

const (
	ControlText     Control = "text"
	ControlEmail    Control = "email"
	ControlTel      Control = "tel"
	ControlTextarea Control = "textarea"
	ControlSelect   Control = "select"
	ControlCheckbox Control = "checkbox"
	ControlRadio    Control = "radio"
	ControlFile     Control = "file"
	ControlNumber   Control = "number"
	ControlDate     Control = "date"
	ControlURL      Control = "url"
)

var controls = map[types.FieldKind]Control{
	types.FieldKindText:     ControlText,
	types.FieldKindEmail:    ControlEmail,
	types.FieldKindPhone:    ControlTel,
	types.FieldKindTextarea: ControlTextarea,
	types.FieldKindSelect:   ControlSelect,
	types.FieldKindCheckbox: ControlCheckbox,
	types.FieldKindRadio:    ControlRadio,
	types.FieldKindFile:     ControlFile,
	types.FieldKindNumber:   ControlNumber,
	types.FieldKindDate:     ControlDate,
	types.FieldKindURL:      ControlURL,
}

// ControlFor maps a field kind to its control. Unknown kinds render as text.
func ControlFor(kind types.FieldKind) Control {
	if c, ok := controls[kind]; ok {
		return c
	}
	return ControlText
}

// Option is one choice of a select, checkbox or radio field.
type Option struct {
	Label    string
	Selected bool
}

// FieldView is a rendered field.
type FieldView struct {
	Name        string
	Label       string
	Control     Control
	Required    bool
	Disabled    bool
	HelpText    string
	Placeholder string
	Span        int
	Value       string // answer as display text, empty when unanswered
	Options     []Option
}

// StepView is a rendered step. Rows hold indexes into Fields.
type StepView struct {
	Key          string
	Title        string
	Description  string
	Columns      int
	Fields       []FieldView
	Rows         [][]int
	HiddenFields []string
}

// Preview is the read-only rendering of a form.
type Preview struct {
	Title       string
	Description string
	Steps       []StepView
	HiddenSteps []string
}

// Render walks the form and renders every visible step and field.
func Render(form *types.Form, answers types.Answers) *Preview {
	p := &Preview{}
	if form == nil {
		return p
	}
	p.Title = form.Name
	p.Description = form.Description

	for _, step := range form.Steps {
		if !rules.Visible(step.Logic, answers) {
			p.HiddenSteps = append(p.HiddenSteps, step.Key)
			continue
		}
		p.Steps = append(p.Steps, renderStep(step, answers))
	}
	return p
}

func renderStep(step types.Step, answers types.Answers) StepView {
	columns := layout.ClampColumnCount(float64(step.Columns))
	view := StepView{
		Key:         step.Key,
		Title:       step.Title,
		Description: step.Description,
		Columns:     columns,
	}

	var spans []int
	for _, f := range step.Fields {
		if !rules.Visible(f.Logic, answers) {
			view.HiddenFields = append(view.HiddenFields, f.Name)
			continue
		}
		fv := renderField(f, answers[f.Name], columns)
		view.Fields = append(view.Fields, fv)
		spans = append(spans, fv.Span)
	}
	view.Rows = layout.Pack(spans, columns)
	return view
}

func renderField(f types.Field, answer any, columns int) FieldView {
	fv := FieldView{
		Name:        f.Name,
		Label:       f.Label,
		Control:     ControlFor(f.Kind),
		Required:    f.Required,
		Disabled:    true,
		HelpText:    f.HelpText,
		Placeholder: f.Placeholder,
		Span:        layout.ClampSpan(f.ColumnSpan, columns),
	}

	selected := selection(answer)
	if f.Kind.HasOptions() {
		for _, opt := range f.Options {
			fv.Options = append(fv.Options, Option{Label: opt, Selected: selected[opt]})
		}
	}
	if f.Kind != types.FieldKindFile {
		fv.Value = display(answer)
	}
	return fv
}

// selection returns the set of chosen option labels in an answer.
func selection(answer any) map[string]bool {
	out := make(map[string]bool)
	switch v := answer.(type) {
	case nil:
	case []any:
		for _, e := range v {
			out[display(e)] = true
		}
	case []string:
		for _, e := range v {
			out[e] = true
		}
	default:
		out[display(v)] = true
	}
	return out
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, display(e))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}
