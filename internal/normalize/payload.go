// internal/normalize/payload.go
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/formkeeper/internal/rules"
	"github.com/solatis/formkeeper/internal/types"
)

/*
 * Boundary parsing.
 *
 * Backend payloads spell the same attribute several ways (required vs
 * is_required, field_type vs type, snake vs camel case). Every accepted
 * variant is translated here into one canonical record; the rest of the
 * package only sees fieldRecord, stepRecord and formRecord.
 *
 * Lookups take the keys in preference order. A dotted key ("layout.column_span")
 * descends into nested objects.
 */

// kindAliases maps alternate kind spellings to the canonical kind.
var kindAliases = map[string]types.FieldKind{
	"tel":           types.FieldKindPhone,
	"telephone":     types.FieldKindPhone,
	"long_text":     types.FieldKindTextarea,
	"multiline":     types.FieldKindTextarea,
	"paragraph":     types.FieldKindTextarea,
	"dropdown":      types.FieldKindSelect,
	"single_select": types.FieldKindSelect,
	"multi_select":  types.FieldKindCheckbox,
	"multiselect":   types.FieldKindCheckbox,
	"checkboxes":    types.FieldKindCheckbox,
	"single_choice": types.FieldKindRadio,
	"upload":        types.FieldKindFile,
	"integer":       types.FieldKindNumber,
	"string":        types.FieldKindText,
}

type fieldRecord struct {
	index       int
	id          string
	name        string // empty when the payload carries none
	label       string
	kind        types.FieldKind
	rawKind     string
	required    bool
	helpText    string
	placeholder string
	constraints types.Constraints
	options     []string
	order       int
	span        any // resolved once the owning step is known
	logic       *types.ConditionalLogic
	stepKey     string
	static      bool
}

type stepRecord struct {
	index          int
	key            string
	title          string
	description    string
	columns        any
	perParticipant bool
	logic          *types.ConditionalLogic
	static         bool
}

type formRecord struct {
	id          string
	name        string
	description string
	programID   string
	columns     any
	fields      []fieldRecord
	steps       []stepRecord
}

// object is a decoded JSON object with variant-aware accessors.
type object map[string]any

func asObject(v any) (object, bool) {
	switch m := v.(type) {
	case map[string]any:
		return object(m), true
	case object:
		return m, true
	default:
		return nil, false
	}
}

func (o object) lookup(key string) (any, bool) {
	var cur any = map[string]any(o)
	for _, part := range strings.Split(key, ".") {
		m, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// first returns the first non-null value among keys.
func (o object) first(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o.lookup(k); ok {
			return v, true
		}
	}
	return nil, false
}

// text returns the first non-blank scalar among keys, trimmed.
func (o object) text(keys ...string) string {
	for _, k := range keys {
		if v, ok := o.lookup(k); ok {
			if s := scalarText(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// flag is true when any of keys holds a truthy value.
func (o object) flag(keys ...string) bool {
	for _, k := range keys {
		if v, ok := o.lookup(k); ok && flagValue(v) {
			return true
		}
	}
	return false
}

func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func flagValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true
		}
		return false
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func intPtr(v any) *int {
	f, ok := toNumber(v)
	if !ok {
		return nil
	}
	n := int(math.Floor(f))
	return &n
}

func floatPtr(v any) *float64 {
	f, ok := toNumber(v)
	if !ok {
		return nil
	}
	return &f
}

func parseForm(raw object, diags *Diagnostics) formRecord {
	rec := formRecord{
		id:          raw.text("id"),
		name:        raw.text("title", "name"),
		description: raw.text("description"),
		programID:   raw.text("program_id", "programId"),
	}
	if rec.programID == "" {
		if p, ok := raw.first("program"); ok {
			if po, ok := asObject(p); ok {
				rec.programID = po.text("id")
			} else {
				rec.programID = scalarText(p)
			}
		}
	}
	rec.columns, _ = raw.first("layout_config.columns", "layoutConfig.columns", "layout_columns", "layoutColumns")

	if steps, ok := raw.first("steps"); ok {
		list, ok := steps.([]any)
		if !ok {
			diags.add("steps", "not an array, ignored")
		}
		for i, s := range list {
			so, ok := asObject(s)
			if !ok {
				diags.add(fmt.Sprintf("steps[%d]", i), "not an object, skipped")
				continue
			}
			rec.steps = append(rec.steps, parseStep(i, so, diags))
		}
	}

	list, _ := raw["fields"].([]any)
	for i, f := range list {
		fo, ok := asObject(f)
		if !ok {
			diags.add(fmt.Sprintf("fields[%d]", i), "not an object, skipped")
			continue
		}
		rec.fields = append(rec.fields, parseField(i, fo, diags))
	}
	return rec
}

func parseStep(index int, raw object, diags *Diagnostics) stepRecord {
	path := fmt.Sprintf("steps[%d]", index)
	rec := stepRecord{
		index:          index,
		key:            raw.text("key", "step_key", "stepKey", "id"),
		title:          raw.text("title", "name"),
		description:    raw.text("description"),
		perParticipant: raw.flag("per_participant", "perParticipant"),
		static:         raw.flag("is_static", "static", "isStatic"),
	}
	rec.columns, _ = raw.first("layout_config.columns", "layoutConfig.columns", "layout_columns", "layoutColumns", "columns")
	rec.logic = parseLogic(path, raw, diags)
	if rec.key == "" {
		rec.key = fmt.Sprintf("step-%d", index+1)
		diags.add(path, fmt.Sprintf("missing key, using %q", rec.key))
	}
	return rec
}

func parseField(index int, raw object, diags *Diagnostics) fieldRecord {
	path := fmt.Sprintf("fields[%d]", index)
	rec := fieldRecord{
		index:       index,
		id:          raw.text("id"),
		name:        raw.text("field_name", "fieldName", "name", "key"),
		label:       raw.text("label", "title"),
		required:    raw.flag("required", "is_required", "isRequired"),
		helpText:    raw.text("help_text", "helpText"),
		placeholder: raw.text("placeholder"),
		stepKey:     raw.text("step_key", "stepKey"),
		static:      raw.flag("is_static", "static", "isStatic"),
	}

	rec.rawKind = strings.ToLower(raw.text("field_type", "fieldType", "type"))
	kind, known := parseKind(rec.rawKind)
	if !known && rec.rawKind != "" {
		diags.add(path, fmt.Sprintf("unknown field type %q, using text", rec.rawKind))
	}
	rec.kind = kind

	if v, ok := raw.first("options", "choices"); ok {
		rec.options = parseOptions(v)
	}

	rec.order = index + 1
	if v, ok := raw.first("order", "position"); ok {
		if n, ok := toNumber(v); ok {
			rec.order = int(math.Floor(n))
		}
	}

	rec.span, _ = raw.first("column_span", "columnSpan", "layout.column_span", "layout.columnSpan")
	rec.logic = parseLogic(path, raw, diags)

	if v, ok := raw.first("validation", "constraints"); ok {
		if vo, ok := asObject(v); ok {
			rec.constraints = parseConstraints(vo)
		}
	}
	return rec
}

// parseKind resolves a kind spelling. Unknown or empty kinds fall back to text.
func parseKind(s string) (types.FieldKind, bool) {
	s = strings.ReplaceAll(s, "-", "_")
	if k := types.FieldKind(s); k.IsValid() {
		return k, true
	}
	if k, ok := kindAliases[s]; ok {
		return k, true
	}
	return types.FieldKindText, false
}

// parseOptions accepts plain strings or {label, value} objects and drops
// falsy entries. Returns nil when nothing remains.
func parseOptions(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if o, ok := asObject(item); ok {
			item, _ = o.firstTruthy("label", "value")
		}
		if !truthyValue(item) {
			continue
		}
		if s := scalarText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstTruthy returns the first value among keys that is not falsy.
func (o object) firstTruthy(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o.lookup(k); ok && truthyValue(v) {
			return v, true
		}
	}
	return nil, false
}

// truthyValue reports whether v is non-falsy: not null, false, zero or "".
func truthyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case float64:
		return t != 0 && !math.IsNaN(t)
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func parseConstraints(raw object) types.Constraints {
	var c types.Constraints
	if v, ok := raw.first("max_length", "maxLength"); ok {
		c.MaxLength = intPtr(v)
	}
	if v, ok := raw.first("min"); ok {
		c.Min = floatPtr(v)
	}
	if v, ok := raw.first("max"); ok {
		c.Max = floatPtr(v)
	}
	if v, ok := raw.first("max_file_size", "maxFileSize", "max_file_size_mb"); ok {
		c.MaxFileSizeMB = floatPtr(v)
	}
	if v, ok := raw.first("allowed_file_types", "allowedFileTypes", "accept"); ok {
		switch t := v.(type) {
		case []any:
			for _, e := range t {
				if s := scalarText(e); s != "" {
					c.AllowedFileTypes = append(c.AllowedFileTypes, s)
				}
			}
		case string:
			for _, s := range strings.Split(t, ",") {
				if s = strings.TrimSpace(s); s != "" {
					c.AllowedFileTypes = append(c.AllowedFileTypes, s)
				}
			}
		}
	}
	return c
}

// parseLogic decodes and sanitises a rule set. Logic stored as a JSON string
// is decoded first. Returns nil when no rule survives.
func parseLogic(path string, raw object, diags *Diagnostics) *types.ConditionalLogic {
	v, ok := raw.first("conditional_logic", "conditionalLogic")
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			diags.add(path+".conditional_logic", "unparseable, dropped")
			return nil
		}
		v = decoded
	}
	lo, ok := asObject(v)
	if !ok {
		diags.add(path+".conditional_logic", "not an object, dropped")
		return nil
	}

	logic := &types.ConditionalLogic{Mode: types.Mode(lo.text("mode", "logic_type", "logicType"))}
	list, _ := lo["rules"].([]any)
	invalid := 0
	for _, r := range list {
		ro, ok := asObject(r)
		if !ok {
			invalid++
			continue
		}
		rule := types.Rule{
			Field: ro.text("field", "field_name", "fieldName"),
			Op:    ro.text("op", "operator"),
		}
		rule.Value, _ = ro.first("value")
		logic.Rules = append(logic.Rules, rule)
	}

	clean, dropped := rules.Sanitize(logic)
	if dropped += invalid; dropped > 0 {
		diags.add(path+".conditional_logic", fmt.Sprintf("%d malformed rule(s) dropped", dropped))
	}
	return clean
}
