package builder

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/formkeeper/internal/normalize"
)

// action is one randomly generated store mutation.
type action struct {
	kind  int
	a, b  int
	value float64
}

func genAction() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 8),
		gen.IntRange(-1, 5),
		gen.IntRange(-1, 5),
		gen.OneGenOf(
			gen.Float64Range(-3, 9),
			gen.OneConstOf(0.0, 1.0, 2.5, 4.0, 4.9, 17.0),
		),
	).Map(func(vals []any) action {
		return action{
			kind:  vals[0].(int),
			a:     vals[1].(int),
			b:     vals[2].(int),
			value: vals[3].(float64),
		}
	})
}

func (act action) apply(s *Store) {
	switch act.kind {
	case 0:
		s.AddStep()
	case 1:
		s.RemoveStep(act.a)
	case 2:
		s.AddField(act.a)
	case 3:
		s.RemoveField(act.a, act.b)
	case 4:
		s.UpdateLayoutConfig(act.value)
	case 5:
		s.UpdateStep(act.a, StepPatch{Columns: Ptr(act.value)})
	case 6:
		s.UpdateField(act.a, act.b, FieldPatch{ColumnSpan: Ptr(int(act.value))})
	case 7:
		s.MoveStep(act.a, act.b)
	case 8:
		s.SetActiveStep(act.a)
	}
}

func checkInvariants(s *Store) bool {
	form := s.Form()
	if form.Columns < 1 || form.Columns > 4 {
		return false
	}
	for _, step := range form.Steps {
		if step.Columns < 1 || step.Columns > 4 {
			return false
		}
		seen := make(map[string]bool)
		for _, f := range step.Fields {
			if f.ColumnSpan < 1 || f.ColumnSpan > step.Columns {
				return false
			}
			if f.Name == "" || seen[f.Name] {
				return false
			}
			seen[f.Name] = true
		}
	}
	active := s.ActiveStep()
	if len(form.Steps) == 0 {
		return active == 0
	}
	return active >= 0 && active < len(form.Steps)
}

func TestProperty_InvariantsHoldAfterAnyActions(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("layout, names and active step stay valid", prop.ForAll(
		func(actions []action) bool {
			s := newTestStore()
			for _, act := range actions {
				act.apply(s)
				if !checkInvariants(s) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genAction()),
	))

	properties.TestingRun(t)
}

func TestProperty_PayloadRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("serialize then normalize keeps non-empty steps", prop.ForAll(
		func(actions []action) bool {
			s := newTestStore()
			for _, act := range actions {
				act.apply(s)
			}
			data, err := s.Payload().JSON()
			if err != nil {
				return false
			}
			got, _ := normalize.Normalize(data)
			want := s.Form()
			if got == nil {
				return want.FieldCount() == 0
			}

			var steps int
			for _, step := range want.Steps {
				if len(step.Fields) == 0 {
					continue
				}
				if steps >= len(got.Steps) {
					return false
				}
				g := got.Steps[steps]
				if g.Key != step.Key || g.Title != step.Title || g.Columns != step.Columns {
					return false
				}
				if len(g.Fields) != len(step.Fields) {
					return false
				}
				for i, f := range step.Fields {
					if g.Fields[i].Name != f.Name || g.Fields[i].ColumnSpan != f.ColumnSpan || g.Fields[i].ID != f.ID {
						return false
					}
				}
				steps++
			}
			return steps == len(got.Steps) && got.Columns == want.Columns
		},
		gen.SliceOf(genAction()),
	))

	properties.TestingRun(t)
}
