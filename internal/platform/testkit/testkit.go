// Package testkit holds helpers shared by package tests
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// Race runs fn on n goroutines released together and returns each result
// at its goroutine's index. Concurrency tests use it to hit one key from
// many callers at once
func Race[T any](n int, fn func(i int) T) []T {
	out := make([]T, n)
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			<-gate
			out[i] = fn(i)
		})
	}
	close(gate)
	wg.Wait()
	return out
}

// MustPanic fails t unless fn panics
func MustPanic(t testing.TB, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	fn()
}

// MustContain fails t unless out contains want. Long output is written to
// a file in t's temp dir and only its path is printed
func MustContain(t testing.TB, out, want string) {
	t.Helper()
	if strings.Contains(out, want) {
		return
	}
	if len(out) <= 512 {
		t.Fatalf("output %q does not contain %q", out, want)
	}
	path := filepath.Join(t.TempDir(), "output.txt")
	_ = os.WriteFile(path, []byte(out), 0o600)
	t.Fatalf("output does not contain %q, full output in %s", want, path)
}
