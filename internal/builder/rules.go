package builder

import (
	"fmt"
	"strings"

	"github.com/solatis/formkeeper/internal/types"
)

// logicOf returns the rule set slot of a target. Rule sets of read-only
// steps and fields fail with ErrStaticEntity.
func (s *Store) logicOf(t Target) (**types.ConditionalLogic, error) {
	if t.IsStep() {
		step, err := s.step(t.Step)
		if err != nil {
			return nil, err
		}
		if err := s.protectStep(t.Step, step); err != nil {
			return nil, err
		}
		return &step.Logic, nil
	}
	step, field, err := s.field(t.Step, t.Field)
	if err != nil {
		return nil, err
	}
	if err := s.protectField(t.Step, t.Field, step, field); err != nil {
		return nil, err
	}
	return &field.Logic, nil
}

func ruleIndex(logic *types.ConditionalLogic, i int) error {
	if logic == nil || i < 0 || i >= len(logic.Rules) {
		return fmt.Errorf("%w: %d", types.ErrRuleNotFound, i)
	}
	return nil
}

// AddConditionalRule appends a rule to the target's rule set, creating the
// set in "all" mode when there is none. Returns the rule index.
//
// Rules may be incomplete while being authored; empty fields and unknown
// operators are dropped when the form is serialized.
func (s *Store) AddConditionalRule(t Target, rule types.Rule) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.logicOf(t)
	if err != nil {
		return 0, err
	}
	if *slot == nil {
		*slot = &types.ConditionalLogic{Mode: types.ModeAll}
	}
	(*slot).Rules = append((*slot).Rules, rule)
	return len((*slot).Rules) - 1, nil
}

// UpdateConditionalRule applies a patch to one rule.
func (s *Store) UpdateConditionalRule(t Target, index int, patch RulePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.logicOf(t)
	if err != nil {
		return err
	}
	if err := ruleIndex(*slot, index); err != nil {
		return err
	}
	rule := &(*slot).Rules[index]
	if patch.Field != nil {
		rule.Field = strings.TrimSpace(*patch.Field)
	}
	if patch.Op != nil {
		rule.Op = strings.TrimSpace(*patch.Op)
	}
	if patch.Value != nil {
		rule.Value = *patch.Value
	}
	return nil
}

// RemoveConditionalRule deletes one rule. The (possibly empty) set stays so
// its mode is kept while authoring.
func (s *Store) RemoveConditionalRule(t Target, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.logicOf(t)
	if err != nil {
		return err
	}
	if err := ruleIndex(*slot, index); err != nil {
		return err
	}
	logic := *slot
	logic.Rules = append(logic.Rules[:index], logic.Rules[index+1:]...)
	return nil
}

// UpdateConditionalMode switches between "all" and "any". Unknown modes
// fall back to "all".
func (s *Store) UpdateConditionalMode(t Target, mode types.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, err := s.logicOf(t)
	if err != nil {
		return err
	}
	if !mode.IsValid() {
		mode = types.ModeAll
	}
	if *slot == nil {
		*slot = &types.ConditionalLogic{}
	}
	(*slot).Mode = mode
	return nil
}
