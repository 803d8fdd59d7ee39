// Package types provides the form model shared across formkeeper components.
//
// The model is wire-format agnostic: backend payload parsing lives in
// internal/normalize and authoring state lives in internal/builder. Both
// produce and consume the types declared here.
package types

// FormID identifies a persisted form. Empty until the form is first saved.
type FormID string

// FieldID is the stable identifier of a field. It survives renames.
type FieldID string

// Answers maps field machine names to the current answer values.
// Values may be nested (maps and slices) for per-participant answers.
type Answers map[string]any

// Layout and rule limits.
const (
	// MinColumns and MaxColumns bound the column count of a form or step.
	MinColumns = 1
	MaxColumns = 4

	// DefaultColumns is used when neither the step nor the form declares a layout.
	DefaultColumns = 4

	// StepBucketSize groups fields without explicit step metadata:
	// bucket = floor((order-1)/StepBucketSize)+1.
	StepBucketSize = 100

	// MaxRulesPerLogic caps the rules kept in a single rule set.
	MaxRulesPerLogic = 32

	// MaxPathDepth limits nested answer lookups ("participants[0].age" is depth 3).
	MaxPathDepth = 8

	// MaxNestedWildcards limits [*] segments in one answer path.
	MaxNestedWildcards = 1
)
