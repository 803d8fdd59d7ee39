package types

import "errors"

// Sentinel errors for formkeeper operations.
var (
	// ErrStepNotFound indicates a step index outside the form's step list.
	ErrStepNotFound = errors.New("step not found")

	// ErrFieldNotFound indicates a field index outside the step's field list.
	ErrFieldNotFound = errors.New("field not found")

	// ErrRuleNotFound indicates a rule index outside the rule list.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrStaticEntity indicates an attempt to change a protected system-managed
	// step or field.
	ErrStaticEntity = errors.New("static steps and fields are read-only")

	// ErrPathTooDeep indicates an answer path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("answer path exceeds maximum depth")

	// ErrTooManyWildcards indicates an answer path exceeds MaxNestedWildcards.
	ErrTooManyWildcards = errors.New("answer path has too many wildcards")

	// ErrInvalidPath indicates an answer path that cannot be parsed.
	ErrInvalidPath = errors.New("invalid answer path")

	// ErrAnswerNotFound indicates an answer path could not be resolved.
	ErrAnswerNotFound = errors.New("answer not found")
)
