package modkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	phttp "litscreen/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func tag(name string, trail *[]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trail = append(*trail, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestBuild_LaterOptionsWin(t *testing.T) {
	t.Parallel()

	type ports struct{ Store string }
	b := Build(
		WithName("screening"),
		WithPrefix("/screening"),
		WithPorts(ports{Store: "pg"}),
		WithPorts(ports{Store: "memory"}),
	)
	if b.Name != "screening" || b.Prefix != "/screening" {
		t.Fatalf("name/prefix = %q/%q", b.Name, b.Prefix)
	}
	if p, ok := b.Ports.(ports); !ok || p.Store != "memory" {
		t.Fatalf("ports = %#v", b.Ports)
	}
	if b.Register != nil || len(b.Mw) != 0 {
		t.Fatalf("unset hooks should stay empty")
	}
}

func TestBuild_CopiesMiddlewares(t *testing.T) {
	t.Parallel()

	var trail []string
	mw := []func(http.Handler) http.Handler{tag("a", &trail), tag("b", &trail)}
	b := Build(WithMiddlewares(mw...), WithMiddlewares(tag("c", &trail)))
	if len(b.Mw) != 3 {
		t.Fatalf("mw = %d, want 3", len(b.Mw))
	}
	mw[0] = nil
	if b.Mw[0] == nil {
		t.Fatalf("Build must not alias the caller's slice")
	}
}

func TestBuilt_MountAppliesPrefixMiddlewareAndRegister(t *testing.T) {
	t.Parallel()

	var trail []string
	b := Build(
		WithPrefix("/screening"),
		WithMiddlewares(tag("outer", &trail), tag("inner", &trail)),
		WithRegister(func(r phttp.Router) {
			r.Get("/extra", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("extra")) })
		}),
	)

	mux := chi.NewRouter()
	b.Mount(phttp.AdaptChi(mux), func(r phttp.Router) {
		r.Get("/works/{id}", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("work")) })
	})

	for path, want := range map[string]string{"/screening/works/p1:w1": "work", "/screening/extra": "extra"} {
		trail = trail[:0]
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("%s = %d %q", path, rec.Code, rec.Body.String())
		}
		if got := strings.Join(trail, ","); got != "outer,inner" {
			t.Fatalf("%s middleware order = %s", path, got)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/works/p1:w1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("routes leaked outside the prefix: %d", rec.Code)
	}
}
