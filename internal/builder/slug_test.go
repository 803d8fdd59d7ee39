package builder

import (
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Parent Phone", "parent-phone"},
		{"  Emergency   Contact  ", "emergency-contact"},
		{"T-Shirt Size (Youth)", "t-shirt-size-youth"},
		{"has_sibling", "hassibling"},
		{"a -- b", "a-b"},
		{"Café Menu", "caf-menu"},
		{"100% Cotton?", "100-cotton"},
		{"!!!", ""},
		{"", ""},
		{"-lead", "-lead"},
		{"a\u00a0b", "a-b"},
		{"Shirt\u2003Size\u3000Youth", "shirt-size-youth"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	for _, in := range []string{"Parent Phone", "a  b", "X--Y", "ok"} {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify(Slugify(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestGeneratedName(t *testing.T) {
	now := time.UnixMilli(42)
	taken := map[string]bool{"field_42": true, "field_43": true}
	got := generatedName(now, func(n string) bool { return taken[n] })
	if got != "field_44" {
		t.Errorf("generatedName() = %q, want field_44", got)
	}
	if !isGenerated(got) || !isGenerated("") || isGenerated("phone") {
		t.Error("isGenerated misclassified names")
	}
}

func TestDedupe(t *testing.T) {
	taken := map[string]bool{"phone": true, "phone-2": true}
	if got := dedupe("phone", func(n string) bool { return taken[n] }); got != "phone-3" {
		t.Errorf("dedupe() = %q, want phone-3", got)
	}
	if got := dedupe("email", func(n string) bool { return taken[n] }); got != "email" {
		t.Errorf("dedupe() = %q, want email", got)
	}
}
