// Package builder holds the authoring state of a multi-step form.
//
// A Store is an explicit state container: consumers receive it by injection
// and mutate it only through its actions. Every action runs under the store
// lock and leaves the form valid before returning:
//
//   - 1 <= step.Columns <= 4 and 1 <= field.ColumnSpan <= step.Columns
//   - field names are non-empty and unique within their step
//   - the active step index is in bounds (0 when there are no steps)
//
// Out-of-range indexes and edits to protected static entities are the only
// errors; they leave the state unchanged.
package builder

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/solatis/formkeeper/internal/layout"
	"github.com/solatis/formkeeper/internal/normalize"
	"github.com/solatis/formkeeper/internal/types"
)

// Store is the authoring state of one form.
type Store struct {
	mu     sync.Mutex
	form   *types.Form
	active int

	now              func() time.Time
	staticProtection bool
}

type config struct {
	now              func() time.Time
	form             *types.Form
	staticSteps      []types.Step
	staticProtection bool
}

// Option configures a Store.
type Option func(*config)

// WithClock sets the time source used for generated field names.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithForm loads an existing form (typically normalized from the backend)
// instead of the default one. A nil form is ignored.
func WithForm(form *types.Form) Option {
	return func(c *config) {
		if form != nil {
			c.form = form
		}
	}
}

// WithStaticSteps prepends system-managed steps, marked static.
func WithStaticSteps(steps ...types.Step) Option {
	return func(c *config) {
		c.staticSteps = append(c.staticSteps, steps...)
	}
}

// WithStaticProtection makes static steps and fields read-only. Updating or
// removing them, adding or moving fields inside a static step, and editing
// their rule sets fail with ErrStaticEntity. Static steps may still be moved,
// and a step inheriting the form column count follows UpdateLayoutConfig.
func WithStaticProtection() Option {
	return func(c *config) {
		c.staticProtection = true
	}
}

// New creates a store holding a form with one default step and one sample
// field, unless WithForm supplies another.
func New(opts ...Option) *Store {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Store{now: cfg.now, staticProtection: cfg.staticProtection}
	if cfg.form != nil {
		s.form = cfg.form.Clone()
	} else {
		s.form = s.defaultForm()
	}
	if len(cfg.staticSteps) > 0 {
		steps := make([]types.Step, 0, len(cfg.staticSteps)+len(s.form.Steps))
		for _, step := range cfg.staticSteps {
			step = step.Clone()
			step.Static = true
			steps = append(steps, step)
		}
		s.form.Steps = append(steps, s.form.Steps...)
	}
	s.repair()
	return s
}

func (s *Store) defaultForm() *types.Form {
	form := &types.Form{Columns: types.DefaultColumns}
	step := types.Step{
		Key:            "step-1",
		Title:          "Step 1",
		Columns:        form.Columns,
		InheritColumns: true,
	}
	step.Fields = append(step.Fields, s.newField(step, "Sample Question"))
	form.Steps = append(form.Steps, step)
	return form
}

func (s *Store) newField(step types.Step, label string) types.Field {
	return types.Field{
		ID:         types.NewFieldID(),
		Name:       generatedName(s.now(), fieldTaken(step, -1)),
		Label:      label,
		Kind:       types.FieldKindText,
		ColumnSpan: step.Columns,
		Logic:      &types.ConditionalLogic{Mode: types.ModeAll},
	}
}

// repair brings a loaded form in line with the store invariants.
func (s *Store) repair() {
	f := s.form
	f.Columns = layout.ClampColumnCount(float64(f.Columns))
	for i := range f.Steps {
		step := &f.Steps[i]
		if step.InheritColumns {
			step.Columns = f.Columns
		}
		step.Columns = layout.ClampColumnCount(float64(step.Columns))
		for j := range step.Fields {
			field := &step.Fields[j]
			if strings.TrimSpace(field.Name) == "" {
				field.Name = generatedName(s.now(), fieldTaken(*step, j))
			}
			field.Name = dedupe(field.Name, takenBefore(*step, j))
			field.ColumnSpan = layout.ClampSpan(field.ColumnSpan, step.Columns)
		}
	}
	s.clampActive()
}

func (s *Store) clampActive() {
	if n := len(s.form.Steps); s.active > n-1 {
		s.active = n - 1
	}
	if s.active < 0 {
		s.active = 0
	}
}

// fieldTaken reports whether name is used in step by a field other than skip.
func fieldTaken(step types.Step, skip int) func(string) bool {
	return func(name string) bool {
		for i, f := range step.Fields {
			if i != skip && f.Name == name {
				return true
			}
		}
		return false
	}
}

// takenBefore reports whether name is used in step by a field before end.
func takenBefore(step types.Step, end int) func(string) bool {
	return func(name string) bool {
		for _, f := range step.Fields[:end] {
			if f.Name == name {
				return true
			}
		}
		return false
	}
}

func (s *Store) step(i int) (*types.Step, error) {
	if i < 0 || i >= len(s.form.Steps) {
		return nil, fmt.Errorf("%w: %d", types.ErrStepNotFound, i)
	}
	return &s.form.Steps[i], nil
}

// protectStep fails when step is read-only.
func (s *Store) protectStep(index int, step *types.Step) error {
	if s.staticProtection && step.Static {
		return fmt.Errorf("%w: step %d", types.ErrStaticEntity, index)
	}
	return nil
}

// protectField fails when the field or its step is read-only.
func (s *Store) protectField(si, fi int, step *types.Step, field *types.Field) error {
	if s.staticProtection && (step.Static || field.Static) {
		return fmt.Errorf("%w: step %d field %d", types.ErrStaticEntity, si, fi)
	}
	return nil
}

func (s *Store) field(si, fi int) (*types.Step, *types.Field, error) {
	step, err := s.step(si)
	if err != nil {
		return nil, nil, err
	}
	if fi < 0 || fi >= len(step.Fields) {
		return nil, nil, fmt.Errorf("%w: step %d field %d", types.ErrFieldNotFound, si, fi)
	}
	return step, &step.Fields[fi], nil
}

// Form returns a deep copy of the current form.
func (s *Store) Form() *types.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// Load replaces the form, e.g. after fetching a saved draft. The active step
// resets to 0.
func (s *Store) Load(form *types.Form) {
	if form == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form = form.Clone()
	s.active = 0
	s.repair()
}

// Payload serializes the current form to the backend shape.
func (s *Store) Payload() *normalize.Payload {
	return normalize.Serialize(s.Form())
}

// ActiveStep returns the index of the step being edited.
func (s *Store) ActiveStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveStep selects a step; out-of-range indexes are clamped.
func (s *Store) SetActiveStep(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = i
	s.clampActive()
}

// UpdateBasic sets a form-level attribute. Steps are not affected.
func (s *Store) UpdateBasic(attr BasicAttr, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch attr {
	case AttrName:
		s.form.Name = value
	case AttrDescription:
		s.form.Description = value
	case AttrProgramID:
		s.form.ProgramID = value
	}
}

// UpdateLayoutConfig sets the form column count. Steps inheriting the form
// default follow it, and every span is re-clamped.
func (s *Store) UpdateLayoutConfig(columns float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Columns = layout.ClampColumnCount(columns)
	for i := range s.form.Steps {
		step := &s.form.Steps[i]
		if step.InheritColumns {
			step.Columns = s.form.Columns
		}
		clampSpans(step)
	}
}

func clampSpans(step *types.Step) {
	for i := range step.Fields {
		step.Fields[i].ColumnSpan = layout.ClampSpan(step.Fields[i].ColumnSpan, step.Columns)
	}
}

// AddStep appends an empty step inheriting the form columns and makes it
// active. Returns its index.
func (s *Store) AddStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.form.Steps)
	s.form.Steps = append(s.form.Steps, types.Step{
		Key:            s.freeStepKey(n + 1),
		Title:          fmt.Sprintf("Step %d", n+1),
		Columns:        s.form.Columns,
		InheritColumns: true,
	})
	s.active = n
	return n
}

func (s *Store) freeStepKey(n int) string {
	for ; ; n++ {
		key := normalize.BucketKey(n)
		taken := false
		for _, step := range s.form.Steps {
			if step.Key == key {
				taken = true
				break
			}
		}
		if !taken {
			return key
		}
	}
}

// UpdateStep applies a patch to a step. Setting Columns clamps the value,
// stops inheriting the form default and re-clamps the step's spans.
func (s *Store) UpdateStep(index int, patch StepPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, err := s.step(index)
	if err != nil {
		return err
	}
	if err := s.protectStep(index, step); err != nil {
		return err
	}
	if patch.Key != nil {
		step.Key = strings.TrimSpace(*patch.Key)
	}
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Description != nil {
		step.Description = *patch.Description
	}
	if patch.PerParticipant != nil {
		step.PerParticipant = *patch.PerParticipant
	}
	if patch.Columns != nil {
		step.Columns = layout.ClampColumnCount(*patch.Columns)
		step.InheritColumns = false
		clampSpans(step)
	}
	return nil
}

// RemoveStep deletes a step. The active index is clamped to the new bounds.
func (s *Store) RemoveStep(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, err := s.step(index)
	if err != nil {
		return err
	}
	if err := s.protectStep(index, step); err != nil {
		return err
	}
	s.form.Steps = append(s.form.Steps[:index], s.form.Steps[index+1:]...)
	s.clampActive()
	return nil
}

// MoveStep moves a step to another position. The active step keeps pointing
// at the same step.
func (s *Store) MoveStep(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.step(from); err != nil {
		return err
	}
	if _, err := s.step(to); err != nil {
		return err
	}
	s.form.Steps = move(s.form.Steps, from, to)
	switch {
	case s.active == from:
		s.active = to
	case from < s.active && s.active <= to:
		s.active--
	case to <= s.active && s.active < from:
		s.active++
	}
	return nil
}

// AddField appends a text field to a step. Returns its index.
func (s *Store) AddField(stepIndex int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, err := s.step(stepIndex)
	if err != nil {
		return 0, err
	}
	if err := s.protectStep(stepIndex, step); err != nil {
		return 0, err
	}
	step.Fields = append(step.Fields, s.newField(*step, ""))
	return len(step.Fields) - 1, nil
}

// UpdateField merges a patch into a field and re-derives its name and span.
//
// While the name is still generated (field_ prefix) or empty, a label change
// renames the field after the label. An explicit name is slugified; if it
// slugifies to nothing the label is used, then a generated name. Derived
// names get -2, -3, ... suffixes to stay unique within the step. The span is
// re-clamped on every update.
func (s *Store) UpdateField(stepIndex, fieldIndex int, patch FieldPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, field, err := s.field(stepIndex, fieldIndex)
	if err != nil {
		return err
	}
	if err := s.protectField(stepIndex, fieldIndex, step, field); err != nil {
		return err
	}

	labelChanged := patch.Label != nil && *patch.Label != field.Label
	if patch.Label != nil {
		field.Label = *patch.Label
	}
	if patch.Kind != nil && patch.Kind.IsValid() {
		field.Kind = *patch.Kind
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if patch.HelpText != nil {
		field.HelpText = *patch.HelpText
	}
	if patch.Placeholder != nil {
		field.Placeholder = *patch.Placeholder
	}
	if patch.Options != nil {
		field.Options = append([]string(nil), (*patch.Options)...)
	}
	if patch.Constraints != nil {
		field.Constraints = *patch.Constraints
	}
	if patch.ColumnSpan != nil {
		field.ColumnSpan = *patch.ColumnSpan
	}

	taken := fieldTaken(*step, fieldIndex)
	switch {
	case patch.Name != nil:
		name := Slugify(*patch.Name)
		if name == "" {
			name = Slugify(field.Label)
		}
		if name == "" {
			name = generatedName(s.now(), taken)
		}
		field.Name = dedupe(name, taken)
	case labelChanged && isGenerated(field.Name):
		if name := Slugify(field.Label); name != "" {
			field.Name = dedupe(name, taken)
		} else if field.Name == "" {
			field.Name = generatedName(s.now(), taken)
		}
	}

	field.ColumnSpan = layout.ClampSpan(field.ColumnSpan, step.Columns)
	return nil
}

// RemoveField deletes a field from a step.
func (s *Store) RemoveField(stepIndex, fieldIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, field, err := s.field(stepIndex, fieldIndex)
	if err != nil {
		return err
	}
	if err := s.protectField(stepIndex, fieldIndex, step, field); err != nil {
		return err
	}
	step.Fields = append(step.Fields[:fieldIndex], step.Fields[fieldIndex+1:]...)
	return nil
}

// MoveField reorders a field within its step.
func (s *Store) MoveField(stepIndex, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, moved, err := s.field(stepIndex, from)
	if err != nil {
		return err
	}
	if err := s.protectField(stepIndex, from, step, moved); err != nil {
		return err
	}
	if _, _, err := s.field(stepIndex, to); err != nil {
		return err
	}
	step.Fields = move(step.Fields, from, to)
	return nil
}

func move[T any](list []T, from, to int) []T {
	item := list[from]
	list = append(list[:from], list[from+1:]...)
	list = append(list[:to], append([]T{item}, list[to:]...)...)
	return list
}
