// internal/rules/operators.go
package rules

import (
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Nine operators over answer values. Answers arrive from UI state or JSON so
 * the same logical value may be a string, a float64 or an int; comparison
 * coerces both sides before testing.
 *
 * Operators:
 *   - is_empty/not_empty: presence checks (cost 1)
 *   - equals/not_equals: numeric equality when both sides are numeric,
 *     text equality otherwise (cost 5)
 *   - gt/gte/lt/lte: numeric only, false when either side is not numeric (cost 7)
 *   - contains: element membership for multi-value answers, substring for text (cost 10)
 *
 * Multi-value answers (checkbox selections) use ANY semantics for equality:
 * the answer equals the target when one of its elements does.
 */

// Operator is the parsed form of Rule.Op.
type Operator int

const (
	OpUnspecified Operator = iota
	OpEquals
	OpNotEquals
	OpContains
	OpIsEmpty
	OpNotEmpty
	OpGt
	OpGte
	OpLt
	OpLte
)

var operatorNames = map[Operator]string{
	OpEquals:    "equals",
	OpNotEquals: "not_equals",
	OpContains:  "contains",
	OpIsEmpty:   "is_empty",
	OpNotEmpty:  "not_empty",
	OpGt:        "gt",
	OpGte:       "gte",
	OpLt:        "lt",
	OpLte:       "lte",
}

// operatorAliases maps every accepted spelling to its operator.
var operatorAliases = map[string]Operator{
	"equals":           OpEquals,
	"eq":               OpEquals,
	"==":               OpEquals,
	"not_equals":       OpNotEquals,
	"not_equal":        OpNotEquals,
	"neq":              OpNotEquals,
	"!=":               OpNotEquals,
	"contains":         OpContains,
	"includes":         OpContains,
	"is_empty":         OpIsEmpty,
	"empty":            OpIsEmpty,
	"not_empty":        OpNotEmpty,
	"is_not_empty":     OpNotEmpty,
	"gt":               OpGt,
	">":                OpGt,
	"greater_than":     OpGt,
	"gte":              OpGte,
	">=":               OpGte,
	"greater_or_equal": OpGte,
	"lt":               OpLt,
	"<":                OpLt,
	"less_than":        OpLt,
	"lte":              OpLte,
	"<=":               OpLte,
	"less_or_equal":    OpLte,
}

// ParseOperator resolves a wire operator name. Case and surrounding
// whitespace are ignored; hyphens are treated as underscores.
func ParseOperator(s string) (Operator, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	op, ok := operatorAliases[key]
	return op, ok
}

// String returns the canonical wire name.
func (op Operator) String() string {
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return "unspecified"
}

// NeedsValue reports whether the operator compares against Rule.Value.
func (op Operator) NeedsValue() bool {
	return op != OpIsEmpty && op != OpNotEmpty
}

// Compare applies the operator to compare an answer against target.
func Compare(op Operator, answer, target any) bool {
	switch op {
	case OpIsEmpty:
		return isEmpty(answer)
	case OpNotEmpty:
		return !isEmpty(answer)
	case OpEquals:
		return compareEqual(answer, target)
	case OpNotEquals:
		return !compareEqual(answer, target)
	case OpContains:
		return compareContains(answer, target)
	case OpGt:
		c, ok := compareNumeric(answer, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareNumeric(answer, target)
		return ok && c >= 0
	case OpLt:
		c, ok := compareNumeric(answer, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareNumeric(answer, target)
		return ok && c <= 0
	default:
		return false
	}
}

// compareEqual performs equality with numeric coercion.
// A nil target matches empty answers.
func compareEqual(a, b any) bool {
	if b == nil {
		return isEmpty(a)
	}
	if elems, ok := asSlice(a); ok {
		for _, elem := range elems {
			if compareScalar(elem, b) {
				return true
			}
		}
		return false
	}
	return compareScalar(a, b)
}

func compareScalar(a, b any) bool {
	if a == nil {
		return false
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return toText(a) == toText(b)
}

// compareNumeric performs three-way numeric comparison (-1/0/1).
// ok is false when either side is not numeric.
func compareNumeric(a, b any) (int, bool) {
	na, nb, ok := asNumbers(a, b)
	if !ok {
		return 0, false
	}
	switch {
	case na < nb:
		return -1, true
	case na > nb:
		return 1, true
	default:
		return 0, true
	}
}

// compareContains tests membership for slices and substring for text.
func compareContains(value, target any) bool {
	if target == nil {
		return false
	}
	if elems, ok := asSlice(value); ok {
		for _, elem := range elems {
			if compareScalar(elem, target) {
				return true
			}
		}
		return false
	}
	if value == nil {
		return false
	}
	return strings.Contains(toText(value), toText(target))
}
