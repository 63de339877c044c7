// Package strings holds the few string helpers module wiring needs
package strings

import std "strings"

// Or returns in, or def when in is empty
func Or[S ~[]E, E any](in, def S) S {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString panics naming what when s is blank
func MustString(s, what string) string {
	if std.TrimSpace(s) == "" {
		panic(what + " is required")
	}
	return s
}

// MustPrefix turns s into a route prefix with one leading slash and no
// trailing slash. A blank or root prefix panics
func MustPrefix(s string) string {
	p := std.Trim(std.TrimSpace(s), "/ ")
	if p == "" {
		panic("route prefix is required")
	}
	return "/" + p
}
