package builder

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9\s\p{Zs}-]`)
	slugWhitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives a machine name from free text: lowercase, trim, strip
// everything outside [a-z0-9], whitespace and hyphens, turn whitespace runs
// into one hyphen, collapse hyphen runs. Unicode space separators such as
// U+00A0 count as whitespace.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	return slugHyphens.ReplaceAllString(s, "-")
}

// generatedPrefix marks names the builder made up; such names follow the label.
const generatedPrefix = "field_"

func isGenerated(name string) bool {
	return name == "" || strings.HasPrefix(name, generatedPrefix)
}

// generatedName returns field_{unix millis}, bumped until free.
func generatedName(now time.Time, taken func(string) bool) string {
	ms := now.UnixMilli()
	for {
		name := fmt.Sprintf("%s%d", generatedPrefix, ms)
		if !taken(name) {
			return name
		}
		ms++
	}
}

// dedupe appends -2, -3, ... until name is free.
func dedupe(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
