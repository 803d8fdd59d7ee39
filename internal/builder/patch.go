package builder

import "github.com/solatis/formkeeper/internal/types"

// BasicAttr names a form-level attribute settable by UpdateBasic.
type BasicAttr string

const (
	AttrName        BasicAttr = "name"
	AttrDescription BasicAttr = "description"
	AttrProgramID   BasicAttr = "program_id"
)

// StepPatch holds step changes. Nil fields are left untouched.
type StepPatch struct {
	Key            *string
	Title          *string
	Description    *string
	Columns        *float64
	PerParticipant *bool
}

// FieldPatch holds field changes. Nil fields are left untouched.
type FieldPatch struct {
	Name        *string
	Label       *string
	Kind        *types.FieldKind
	Required    *bool
	HelpText    *string
	Placeholder *string
	Options     *[]string
	Constraints *types.Constraints
	ColumnSpan  *int
}

// RulePatch holds rule changes. Nil fields are left untouched.
type RulePatch struct {
	Field *string
	Op    *string
	Value *any
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Target addresses the owner of a rule set: a field or a whole step.
type Target struct {
	Step  int
	Field int // -1 addresses the step itself
}

// FieldTarget addresses the rule set of a field.
func FieldTarget(step, field int) Target {
	return Target{Step: step, Field: field}
}

// StepTarget addresses the rule set of a step.
func StepTarget(step int) Target {
	return Target{Step: step, Field: -1}
}

// IsStep reports whether the target is a step.
func (t Target) IsStep() bool {
	return t.Field < 0
}
