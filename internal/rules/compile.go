// internal/rules/compile.go
package rules

import (
	"sort"
	"strings"

	"github.com/solatis/formkeeper/internal/types"
)

/*
 * Rule sanitising and compilation.
 *
 * Sanitize is the persistence filter: rules with an empty target field or an
 * unknown operator are dropped, operator aliases are rewritten to canonical
 * names, the mode defaults to "all", and an empty result collapses to nil.
 *
 * Compile prepares sanitised logic for evaluation:
 *   1. Parse answer paths and enforce depth/wildcard limits
 *   2. Calculate condition costs
 *   3. Order conditions by ascending cost (stable sort for determinism)
 *
 * A field name that is not a valid path (bracketed names, empty dot
 * segments, paths past the depth or wildcard limits) compiles with a nil
 * Path and is matched against the flat answer key only.
 *
 * Stable sort keeps equal-cost rules in authored order so the deciding rule
 * reported by Evaluate is the same across identical inputs.
 */

// CompiledCondition is a pre-processed rule ready for evaluation.
type CompiledCondition struct {
	Rule     types.Rule // canonical rule as stored
	Index    int        // position in the sanitised rule list
	Path     []types.PathSegment // nil when the field only names a flat key
	Operator Operator
	Value    any
	Cost     int
}

// CompiledLogic is fully pre-processed and ready for evaluation.
type CompiledLogic struct {
	Mode       types.Mode
	Conditions []CompiledCondition // ordered by ascending cost
}

// Sanitize returns a canonical copy of logic without malformed rules, and the
// number of rules dropped. Returns nil when no rule survives.
func Sanitize(logic *types.ConditionalLogic) (*types.ConditionalLogic, int) {
	if logic == nil {
		return nil, 0
	}

	mode := types.Mode(strings.ToLower(strings.TrimSpace(string(logic.Mode))))
	if !mode.IsValid() {
		mode = types.ModeAll
	}

	out := &types.ConditionalLogic{Mode: mode}
	dropped := 0
	for _, r := range logic.Rules {
		field := strings.TrimSpace(r.Field)
		op, ok := ParseOperator(r.Op)
		if field == "" || !ok {
			dropped++
			continue
		}
		if len(out.Rules) == types.MaxRulesPerLogic {
			dropped++
			continue
		}
		rule := types.Rule{Field: field, Op: op.String()}
		if op.NeedsValue() {
			rule.Value = r.Value
		}
		out.Rules = append(out.Rules, rule)
	}

	if len(out.Rules) == 0 {
		return nil, dropped
	}
	return out, dropped
}

// Compile pre-processes logic for evaluation.
// Returns nil (always visible) when no rule survives sanitising.
func Compile(logic *types.ConditionalLogic) *CompiledLogic {
	clean, _ := Sanitize(logic)
	if clean == nil {
		return nil
	}

	compiled := &CompiledLogic{
		Mode:       clean.Mode,
		Conditions: make([]CompiledCondition, 0, len(clean.Rules)),
	}

	for i, r := range clean.Rules {
		path, err := ParsePath(r.Field)
		if err != nil {
			path = nil
		}
		op, _ := ParseOperator(r.Op)
		compiled.Conditions = append(compiled.Conditions, CompiledCondition{
			Rule:     r,
			Index:    i,
			Path:     path,
			Operator: op,
			Value:    r.Value,
			Cost:     CalculateConditionCost(path, op),
		})
	}

	sort.SliceStable(compiled.Conditions, func(i, j int) bool {
		return compiled.Conditions[i].Cost < compiled.Conditions[j].Cost
	})

	return compiled
}
