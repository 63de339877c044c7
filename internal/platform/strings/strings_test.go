package strings

import (
	"testing"

	kit "litscreen/internal/platform/testkit"
)

func TestOr(t *testing.T) {
	if got := Or(nil, []string{"GET"}); len(got) != 1 || got[0] != "GET" {
		t.Fatalf("Or default = %v", got)
	}
	if got := Or([]string{"POST"}, []string{"GET"}); got[0] != "POST" {
		t.Fatalf("Or kept = %v", got)
	}
}

func TestMustString(t *testing.T) {
	if MustString("screening", "name") != "screening" {
		t.Fatalf("MustString mismatch")
	}
	kit.MustPanic(t, func() { MustString("  ", "name") })
}

func TestMustPrefix(t *testing.T) {
	cases := map[string]string{
		"screening":   "/screening",
		"/screening/": "/screening",
		"  /meta  ":   "/meta",
		"//a/b//":     "/a/b",
	}
	for in, want := range cases {
		if got := MustPrefix(in); got != want {
			t.Fatalf("MustPrefix(%q) = %q, want %q", in, got, want)
		}
	}
	kit.MustPanic(t, func() { MustPrefix(" / ") })
}
