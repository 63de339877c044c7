package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"litscreen/internal/adapters/projects"
	"litscreen/internal/platform/config"
	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/modkit/module"
	screeningmod "litscreen/internal/services/api/screening/module"
	srepo "litscreen/internal/services/api/screening/repo"
	auditmod "litscreen/internal/services/audit/module"

	"github.com/go-chi/chi/v5"
)

const policyFile = `
projects:
  - id: p1
    members: {r1: REVIEWER, r2: REVIEWER}
    works: [w1]
`

func TestMount_MemoryEngineEndToEnd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "projects.yaml")
	if err := os.WriteFile(file, []byte(policyFile), 0o600); err != nil {
		t.Fatal(err)
	}

	mux := chi.NewRouter()
	rt := Mount(phttp.AdaptChi(mux), Options{
		Config: config.New(),
		ScreeningPorts: &screeningmod.Ports{Options: screeningmod.Options{
			Store:      screeningmod.StoreMemory,
			PolicyFile: file,
			AuthSecret: "k",
		}},
	})
	if rt.Screening.Outbox == nil || rt.Audit == nil {
		t.Fatalf("runtime not wired: %+v", rt)
	}

	do := func(method, path, user, body string) (int, json.RawMessage) {
		t.Helper()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if user != "" {
			req.Header.Set("Authorization", "Bearer "+projects.NewSigner("k").Sign(user))
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
		return rec.Code, env.Data
	}

	code, data := do(http.MethodGet, "/api/v1/meta/engine", "", "")
	if code != http.StatusOK || !strings.Contains(string(data), `"store":"memory"`) {
		t.Fatalf("engine = %d %s", code, data)
	}

	for _, u := range []string{"r1", "r2"} {
		code, data = do(http.MethodPost, "/api/v1/screening/works/p1:w1/decisions", u, `{"phase":"TITLE_ABSTRACT","decision":"EXCLUDE"}`)
		if code != http.StatusOK {
			t.Fatalf("submit %s = %d %s", u, code, data)
		}
	}

	// the post commit hook nudged the relay, so it drains without waiting for a tick
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	relay := module.MustPortsOf[auditmod.Ports](rt.Audit).Worker
	go func() { _ = relay.Run(ctx) }()

	mem, ok := rt.Screening.Outbox.(*srepo.Memory)
	if !ok {
		t.Fatalf("outbox is %T", rt.Screening.Outbox)
	}
	deadline := time.Now().Add(2 * time.Second)
	for mem.Undelivered() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("relay left %d facts undelivered", mem.Undelivered())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
