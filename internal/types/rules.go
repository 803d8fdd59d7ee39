// internal/types/rules.go
package types

/*
 * Domain types for conditional visibility.
 *
 * ConditionalLogic governs whether a field or a step is shown. It is stored
 * exactly as authored (Op is the wire string); internal/rules parses and
 * compiles it for evaluation.
 *
 * Key types:
 *   - ConditionalLogic: aggregation mode plus ordered rules
 *   - Rule: single test of one answer against a value
 *   - PathSegment: one component of an answer path (key, index, or wildcard)
 *
 * A nil *ConditionalLogic means "always visible". An empty rule list is never
 * stored; sanitising collapses it to nil.
 */

// Mode aggregates rule outcomes.
type Mode string

const (
	// ModeAll requires every rule to pass (AND).
	ModeAll Mode = "all"
	// ModeAny requires at least one rule to pass (OR).
	ModeAny Mode = "any"
)

// IsValid checks if the mode is valid
func (m Mode) IsValid() bool {
	return m == ModeAll || m == ModeAny
}

// Rule tests answers[Field] against Value using Op.
type Rule struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"` // omitted for is_empty/not_empty
}

// ConditionalLogic is a rule set controlling visibility.
type ConditionalLogic struct {
	Mode  Mode   `json:"mode"`
	Rules []Rule `json:"rules"`
}

// Clone returns a deep copy. Nil-safe.
func (c *ConditionalLogic) Clone() *ConditionalLogic {
	if c == nil {
		return nil
	}
	out := &ConditionalLogic{Mode: c.Mode}
	if c.Rules != nil {
		out.Rules = make([]Rule, len(c.Rules))
		copy(out.Rules, c.Rules)
	}
	return out
}

// PathSegment represents one component of an answer path.
type PathSegment struct {
	Key      string // map key (mutually exclusive with Index/Wildcard)
	Index    int    // slice index (mutually exclusive with Key/Wildcard)
	IsIndex  bool   // disambiguates Index=0 from unset
	Wildcard bool   // true = any element
}
