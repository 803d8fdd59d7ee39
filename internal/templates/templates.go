// Package templates provides the catalog of system-managed steps (guardian
// details, per-participant details) that forms start from. The catalog is
// embedded TOML; each file describes one step.
package templates

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/solatis/formkeeper/internal/builder"
	"github.com/solatis/formkeeper/internal/layout"
	"github.com/solatis/formkeeper/internal/types"
)

//go:embed catalog/*.toml
var catalogFS embed.FS

// ErrUnknownTemplate is returned by Catalog.Step for names not in the catalog.
var ErrUnknownTemplate = goerr.New("unknown step template")

// Template is one catalog entry.
type Template struct {
	ID             string  `toml:"id"`
	Key            string  `toml:"key"`
	Title          string  `toml:"title"`
	Description    string  `toml:"description"`
	Columns        int     `toml:"columns"`
	PerParticipant bool    `toml:"per_participant"`
	Fields         []Field `toml:"field"`
}

// Field describes one field of a template.
type Field struct {
	Name        string   `toml:"name"`
	Label       string   `toml:"label"`
	Kind        string   `toml:"kind"`
	Required    bool     `toml:"required"`
	HelpText    string   `toml:"help_text"`
	Placeholder string   `toml:"placeholder"`
	Options     []string `toml:"options"`
	ColumnSpan  int      `toml:"column_span"`
	MaxLength   *int     `toml:"max_length"`
}

// machineName is the explicit name, or the slugified label.
func (f *Field) machineName() string {
	if name := builder.Slugify(f.Name); name != "" {
		return name
	}
	return builder.Slugify(f.Label)
}

// Validate checks if the Field is valid
func (f *Field) Validate() error {
	if strings.TrimSpace(f.Label) == "" {
		return goerr.New("field label is required", goerr.V("name", f.Name))
	}
	if f.machineName() == "" {
		return goerr.New("field name is empty after slugify", goerr.V("label", f.Label))
	}
	kind := types.FieldKind(f.Kind)
	if !kind.IsValid() {
		return goerr.New("invalid field kind", goerr.V("label", f.Label), goerr.V("kind", f.Kind))
	}
	if kind.HasOptions() && len(f.Options) == 0 {
		return goerr.New("choice field needs options", goerr.V("label", f.Label), goerr.V("kind", f.Kind))
	}
	if f.ColumnSpan < 0 || f.ColumnSpan > types.MaxColumns {
		return goerr.New("column span out of range", goerr.V("label", f.Label), goerr.V("column_span", f.ColumnSpan))
	}
	return nil
}

// Validate checks if the Template is valid
func (t *Template) Validate() error {
	if t.ID == "" {
		return goerr.New("template ID is required")
	}
	if t.Title == "" {
		return goerr.New("template title is required", goerr.V("id", t.ID))
	}
	if t.Columns < 0 || t.Columns > types.MaxColumns {
		return goerr.New("columns out of range", goerr.V("id", t.ID), goerr.V("columns", t.Columns))
	}
	if len(t.Fields) == 0 {
		return goerr.New("template has no fields", goerr.V("id", t.ID))
	}

	names := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if err := f.Validate(); err != nil {
			return goerr.Wrap(err, "invalid field", goerr.V("id", t.ID), goerr.V("index", i))
		}
		name := f.machineName()
		if names[name] {
			return goerr.New("duplicate field name", goerr.V("id", t.ID), goerr.V("name", name))
		}
		names[name] = true
	}
	return nil
}

// Parse decodes and validates one template.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, goerr.Wrap(err, "failed to decode template")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Catalog is a validated set of templates keyed by ID.
type Catalog struct {
	templates map[string]*Template
}

// Load reads the embedded catalog.
func Load() (*Catalog, error) {
	return LoadFS(catalogFS, "catalog")
}

// LoadFS reads every *.toml file in dir.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read template catalog", goerr.V("dir", dir))
	}

	c := &Catalog{templates: make(map[string]*Template)}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".toml" {
			continue
		}
		file := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read template", goerr.V("file", file))
		}
		t, err := Parse(data)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid template", goerr.V("file", file))
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, goerr.New("duplicate template ID", goerr.V("id", t.ID), goerr.V("file", file))
		}
		c.templates[t.ID] = t
	}
	return c, nil
}

// Names returns the template IDs in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns a catalog entry.
func (c *Catalog) Template(name string) (*Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

// Step instantiates a template as a static step. Every call returns fresh
// field IDs.
func (c *Catalog) Step(name string) (types.Step, error) {
	t, ok := c.templates[name]
	if !ok {
		return types.Step{}, goerr.Wrap(ErrUnknownTemplate, "no such template", goerr.V("name", name))
	}

	columns := types.DefaultColumns
	if t.Columns > 0 {
		columns = layout.ClampColumnCount(float64(t.Columns))
	}
	key := t.Key
	if key == "" {
		key = t.ID
	}

	step := types.Step{
		Key:            key,
		Title:          t.Title,
		Description:    t.Description,
		Columns:        columns,
		PerParticipant: t.PerParticipant,
		Static:         true,
		Fields:         make([]types.Field, 0, len(t.Fields)),
	}
	for i, f := range t.Fields {
		span := columns
		if f.ColumnSpan > 0 {
			span = layout.ClampSpan(f.ColumnSpan, columns)
		}
		field := types.Field{
			ID:          types.NewFieldID(),
			Name:        f.machineName(),
			Label:       f.Label,
			Kind:        types.FieldKind(f.Kind),
			Required:    f.Required,
			HelpText:    f.HelpText,
			Placeholder: f.Placeholder,
			Order:       i + 1,
			ColumnSpan:  span,
			Static:      true,
		}
		if f.Options != nil {
			field.Options = append([]string(nil), f.Options...)
		}
		if f.MaxLength != nil {
			n := *f.MaxLength
			field.Constraints.MaxLength = &n
		}
		step.Fields = append(step.Fields, field)
	}
	return step, nil
}

// Steps instantiates several templates in order.
func (c *Catalog) Steps(names ...string) ([]types.Step, error) {
	steps := make([]types.Step, 0, len(names))
	for _, name := range names {
		step, err := c.Step(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}
