package normalize

import (
	"strings"
	"sync"
	"testing"
)

func TestText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"trim and fold spaces", "  Relevant   to\ttopic  ", "Relevant to topic"},
		{"nfc composes", "cafe\u0301", "caf\u00e9"},
		{"zero width removed", "off\u200btopic", "offtopic"},
		{"bom removed", "\ufeffscope", "scope"},
		{"fullwidth folded", "\uff32\uff23\uff34", "RCT"},
		{"controls dropped", "a\x00b\x07c", "abc"},
		{"crlf to lf", "line one\r\nline two", "line one\nline two"},
		{"blank lines squeezed", "\n\npara one\n\n\n\npara two\n\n", "para one\n\npara two"},
		{"invalid utf8 dropped", "ok\xffok", "okok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.in); got != tc.want {
				t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	in := " Population: adults\u200b 18+\r\n\r\n\r\nDesign:  \uff32\uff23\uff34 "
	once := Text(in)
	if twice := Text(once); twice != once {
		t.Fatalf("not idempotent: %q then %q", once, twice)
	}
}

func TestLen(t *testing.T) {
	if Len("héllo") != 5 {
		t.Fatalf("Len counts bytes instead of runes")
	}
	if Len(strings.Repeat("ü", 4000)) != 4000 {
		t.Fatal("Len mismatch on multibyte input")
	}
}

func TestText_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Text("\uff41  b"); got != "a b" {
				t.Errorf("got %q", got)
			}
		}()
	}
	wg.Wait()
}
