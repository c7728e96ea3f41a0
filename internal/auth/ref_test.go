package auth

import (
	"errors"
	"testing"
)

func TestParseRefDispatch(t *testing.T) {
	cases := []struct {
		raw  string
		want Ref
	}{
		{"42", ByID(42)},
		{" 42 ", ByID(42)},
		{"a@x.com", ByEmail("a@x.com")},
		{"A@X.COM", ByEmail("a@x.com")},
		{"alice", ByUsername("alice")},
		{"alice42", ByUsername("alice42")},
	}
	for _, tc := range cases {
		got, err := ParseRef(tc.raw)
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRef(%q)=%v, want %v", tc.raw, got, tc.want)
		}
	}

	if _, err := ParseRef("  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank ref, got %v", err)
	}
}

func TestLegacyAliasesOrderAndDedup(t *testing.T) {
	u := &User{Email: "a@x.com", Username: "a"}
	aliases := LegacyAliases(u)
	if len(aliases) != 2 || aliases[0] != "a@x.com" || aliases[1] != "a" {
		t.Fatalf("unexpected aliases: %v", aliases)
	}

	// Username defaulted to the email: one alias, not two.
	u = &User{Email: "b@x.com", Username: "b@x.com"}
	aliases = LegacyAliases(u)
	if len(aliases) != 1 || aliases[0] != "b@x.com" {
		t.Fatalf("expected deduplicated aliases, got %v", aliases)
	}

	if got := LegacyAliases(nil); got != nil {
		t.Fatalf("expected nil for nil user, got %v", got)
	}
}
