package types

// FieldKind represents the input kind of a field
type FieldKind string

const (
	FieldKindText     FieldKind = "text"
	FieldKindEmail    FieldKind = "email"
	FieldKindPhone    FieldKind = "phone"
	FieldKindTextarea FieldKind = "textarea"
	FieldKindSelect   FieldKind = "select"
	FieldKindCheckbox FieldKind = "checkbox"
	FieldKindRadio    FieldKind = "radio"
	FieldKindFile     FieldKind = "file"
	FieldKindNumber   FieldKind = "number"
	FieldKindDate     FieldKind = "date"
	FieldKindURL      FieldKind = "url"
)

// AllFieldKinds returns all valid field kinds
func AllFieldKinds() []FieldKind {
	return []FieldKind{
		FieldKindText,
		FieldKindEmail,
		FieldKindPhone,
		FieldKindTextarea,
		FieldKindSelect,
		FieldKindCheckbox,
		FieldKindRadio,
		FieldKindFile,
		FieldKindNumber,
		FieldKindDate,
		FieldKindURL,
	}
}

// IsValid checks if the field kind is valid
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindText,
		FieldKindEmail,
		FieldKindPhone,
		FieldKindTextarea,
		FieldKindSelect,
		FieldKindCheckbox,
		FieldKindRadio,
		FieldKindFile,
		FieldKindNumber,
		FieldKindDate,
		FieldKindURL:
		return true
	default:
		return false
	}
}

// HasOptions reports whether the kind renders a list of choices.
func (k FieldKind) HasOptions() bool {
	return k == FieldKindSelect || k == FieldKindCheckbox || k == FieldKindRadio
}

// IsNumeric reports whether answers of this kind compare as numbers.
func (k FieldKind) IsNumeric() bool {
	return k == FieldKindNumber
}

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	return string(k)
}

// Constraints holds kind-specific limits. Nil pointers mean "no limit".
type Constraints struct {
	MaxLength        *int     `json:"max_length,omitempty"`
	Min              *float64 `json:"min,omitempty"`
	Max              *float64 `json:"max,omitempty"`
	AllowedFileTypes []string `json:"allowed_file_types,omitempty"`
	MaxFileSizeMB    *float64 `json:"max_file_size,omitempty"`
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.MaxLength == nil && c.Min == nil && c.Max == nil &&
		len(c.AllowedFileTypes) == 0 && c.MaxFileSizeMB == nil
}

// Field is one input in a form step.
type Field struct {
	ID          FieldID
	Name        string // machine name, unique within the owning step
	Label       string
	Kind        FieldKind
	Required    bool
	HelpText    string
	Placeholder string
	Constraints Constraints
	Options     []string // nil when the field has no choices
	Order       int
	ColumnSpan  int // 1 <= ColumnSpan <= owning step's Columns
	Logic       *ConditionalLogic
	Static      bool
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Constraints.AllowedFileTypes != nil {
		out.Constraints.AllowedFileTypes = append([]string(nil), f.Constraints.AllowedFileTypes...)
	}
	out.Constraints.MaxLength = clonePtr(f.Constraints.MaxLength)
	out.Constraints.Min = clonePtr(f.Constraints.Min)
	out.Constraints.Max = clonePtr(f.Constraints.Max)
	out.Constraints.MaxFileSizeMB = clonePtr(f.Constraints.MaxFileSizeMB)
	out.Logic = f.Logic.Clone()
	return out
}

// Step is an ordered page of a multi-step form.
type Step struct {
	Key            string
	Title          string
	Description    string
	Fields         []Field
	Columns        int
	InheritColumns bool // Columns follows the form default
	PerParticipant bool // repeated once per registered participant
	Logic          *ConditionalLogic
	Static         bool
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.Fields = make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		out.Fields[i] = f.Clone()
	}
	out.Logic = s.Logic.Clone()
	return out
}

// Form is the top-level authored artifact.
type Form struct {
	ID          FormID
	Name        string
	Description string
	ProgramID   string
	Columns     int
	Steps       []Step
}

// Clone returns a deep copy of the form.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	out := *f
	out.Steps = make([]Step, len(f.Steps))
	for i, s := range f.Steps {
		out.Steps[i] = s.Clone()
	}
	return &out
}

// FieldCount returns the number of fields across all steps.
func (f *Form) FieldCount() int {
	n := 0
	for _, s := range f.Steps {
		n += len(s.Fields)
	}
	return n
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
