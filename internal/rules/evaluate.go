// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/formkeeper/internal/types"
)

/*
 * Rule evaluation.
 *
 * Evaluation flow:
 *   1. nil logic: visible
 *   2. per condition: look up answer -> compare operator
 *   3. mode "all": short-circuit on first failing condition
 *      mode "any": short-circuit on first passing condition
 *
 * Answer lookup tries the rule field as a flat key first so field names that
 * happen to contain dots still work, then falls back to path resolution. A
 * missing answer is nil, which is_empty treats as empty and every other
 * operator treats as not matching.
 */

// Result contains the outcome of evaluating a rule set.
type Result struct {
	Visible bool
	// Decided is the rule that settled the outcome: the first failing rule
	// for "all", the first passing rule for "any". Nil when no rule decided.
	Decided *types.Rule
	Index   int // position of Decided in the sanitised rule list, -1 if none
}

// Evaluate checks whether compiled logic passes for the given answers.
func Evaluate(logic *CompiledLogic, answers types.Answers) Result {
	if logic == nil || len(logic.Conditions) == 0 {
		return Result{Visible: true, Index: -1}
	}

	if logic.Mode == types.ModeAny {
		for _, cond := range logic.Conditions {
			if evaluateCondition(cond, answers) {
				r := cond.Rule
				return Result{Visible: true, Decided: &r, Index: cond.Index}
			}
		}
		return Result{Visible: false, Index: -1}
	}

	for _, cond := range logic.Conditions {
		if !evaluateCondition(cond, answers) {
			r := cond.Rule
			return Result{Visible: false, Decided: &r, Index: cond.Index}
		}
	}
	return Result{Visible: true, Index: -1}
}

// Visible evaluates uncompiled logic.
func Visible(logic *types.ConditionalLogic, answers types.Answers) bool {
	return Evaluate(Compile(logic), answers).Visible
}

func evaluateCondition(cond CompiledCondition, answers types.Answers) bool {
	return Compare(cond.Operator, lookup(cond, answers), cond.Value)
}

func lookup(cond CompiledCondition, answers types.Answers) any {
	if v, ok := answers[cond.Rule.Field]; ok {
		return v
	}
	if len(cond.Path) <= 1 {
		return nil
	}
	resolved, err := Resolve(cond.Path, answers)
	if err != nil || !resolved.Found {
		return nil
	}
	return resolved.Value
}
