// internal/rules/fieldpath.go
package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/formkeeper/internal/types"
)

/*
 * Answer path resolution.
 *
 * A rule normally names a flat answer key ("has_sibling"). Per-participant
 * steps store answers in nested structures, so a rule may also name a path:
 *
 *   guardian.phone          nested map
 *   participants[0].age     slice index
 *   participants[*].age     any participant (first match wins)
 *
 * Limits: MaxPathDepth segments, MaxNestedWildcards wildcards. Wildcards over
 * maps iterate keys in sorted order so evaluation is deterministic.
 */

// ParsePath splits a dotted answer path into segments.
func ParsePath(s string) ([]types.PathSegment, error) {
	if strings.TrimSpace(s) == "" {
		return nil, types.ErrInvalidPath
	}

	var path []types.PathSegment
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return nil, types.ErrInvalidPath
		}
		key := part
		var indexes string
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			indexes = part[i:]
		}
		if key != "" {
			path = append(path, types.PathSegment{Key: key})
		} else if len(path) == 0 {
			return nil, types.ErrInvalidPath
		}
		for indexes != "" {
			end := strings.IndexByte(indexes, ']')
			if indexes[0] != '[' || end < 0 {
				return nil, types.ErrInvalidPath
			}
			inner := indexes[1:end]
			indexes = indexes[end+1:]
			if inner == "*" {
				path = append(path, types.PathSegment{Wildcard: true})
				continue
			}
			n, err := strconv.Atoi(inner)
			if err != nil || n < 0 {
				return nil, types.ErrInvalidPath
			}
			path = append(path, types.PathSegment{Index: n, IsIndex: true})
		}
	}

	if err := checkLimits(path); err != nil {
		return nil, err
	}
	return path, nil
}

func checkLimits(path []types.PathSegment) error {
	if len(path) > types.MaxPathDepth {
		return types.ErrPathTooDeep
	}
	wildcards := 0
	for _, seg := range path {
		if seg.Wildcard {
			wildcards++
		}
	}
	if wildcards > types.MaxNestedWildcards {
		return types.ErrTooManyWildcards
	}
	return nil
}

// ResolveResult contains the resolved value and the actual path taken.
type ResolveResult struct {
	Value        any                 // resolved value (nil if not found)
	ResolvedPath []types.PathSegment // path with wildcards replaced by actual indices
	Found        bool
}

// Resolve traverses answers following path segments.
// Returns ErrAnswerNotFound if the path does not exist.
func Resolve(path []types.PathSegment, answers types.Answers) (ResolveResult, error) {
	if err := checkLimits(path); err != nil {
		return ResolveResult{}, err
	}
	return resolveRecursive(path, map[string]any(answers), nil)
}

func resolveRecursive(path []types.PathSegment, current any, resolvedSoFar []types.PathSegment) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{
			Value:        current,
			ResolvedPath: resolvedSoFar,
			Found:        true,
		}, nil
	}

	seg := path[0]
	remaining := path[1:]

	if m, ok := asMap(current); ok {
		if seg.Wildcard {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				resolved := append(resolvedSoFar, types.PathSegment{Key: key})
				result, err := resolveRecursive(remaining, m[key], resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrAnswerNotFound
		}
		if seg.IsIndex {
			return ResolveResult{}, types.ErrAnswerNotFound
		}
		val, ok := m[seg.Key]
		if !ok {
			return ResolveResult{}, types.ErrAnswerNotFound
		}
		return resolveRecursive(remaining, val, append(resolvedSoFar, seg))
	}

	if elems, ok := asSlice(current); ok {
		if seg.Wildcard {
			for i, elem := range elems {
				resolved := append(resolvedSoFar, types.PathSegment{Index: i, IsIndex: true})
				result, err := resolveRecursive(remaining, elem, resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrAnswerNotFound
		}
		if !seg.IsIndex || seg.Index >= len(elems) {
			return ResolveResult{}, types.ErrAnswerNotFound
		}
		return resolveRecursive(remaining, elems[seg.Index], append(resolvedSoFar, seg))
	}

	if list, ok := current.([]map[string]any); ok {
		elems := make([]any, len(list))
		for i, e := range list {
			elems[i] = e
		}
		return resolveRecursive(path, elems, resolvedSoFar)
	}

	// Scalar or nil but path continues
	return ResolveResult{}, types.ErrAnswerNotFound
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case types.Answers:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
