// internal/rules/cost.go
package rules

import "github.com/solatis/formkeeper/internal/types"

/*
 * Cost model for condition ordering.
 *
 * Evaluation short-circuits (first failing rule for "all", first passing rule
 * for "any"), so cheaper conditions run first. Operators are pure, so the
 * reordering never changes the outcome.
 *
 * cost = lookup_cost + operator_cost * 8^wildcards
 */

const (
	CostIsEmpty  = 1
	CostNotEmpty = 1
	CostEquals   = 5
	CostNotEq    = 5
	CostNumeric  = 7
	CostContains = 10

	// Extra lookup cost per nested path segment beyond the first
	CostLookupPerSegment = 16
)

// CalculateConditionCost computes cost for a single condition.
func CalculateConditionCost(path []types.PathSegment, op Operator) int {
	lookupCost := 0
	wildcardCount := 0
	for i, seg := range path {
		if i > 0 {
			lookupCost += CostLookupPerSegment
		}
		if seg.Wildcard {
			wildcardCount++
		}
	}

	execMult := 1
	for i := 0; i < wildcardCount; i++ {
		execMult *= 8
	}

	return lookupCost + operatorCost(op)*execMult
}

func operatorCost(op Operator) int {
	switch op {
	case OpIsEmpty, OpNotEmpty:
		return CostIsEmpty
	case OpEquals, OpNotEquals:
		return CostEquals
	case OpGt, OpGte, OpLt, OpLte:
		return CostNumeric
	case OpContains:
		return CostContains
	default:
		return CostEquals
	}
}
