package module

import (
	"context"
	"strings"
	"testing"

	"litscreen/internal/modkit"
	srepo "litscreen/internal/services/api/screening/repo"
)

type recordingCH struct{ execs []string }

func (r *recordingCH) Insert(context.Context, string, []string, [][]any) error { return nil }
func (r *recordingCH) Exec(_ context.Context, sql string, _ ...any) error {
	r.execs = append(r.execs, sql)
	return nil
}
func (r *recordingCH) Ping(context.Context) error { return nil }
func (r *recordingCH) Close() error               { return nil }

func TestNew_MemoryOutboxWithoutClickHouse(t *testing.T) {
	m := New(modkit.Deps{}, srepo.NewMemory(), Options{Batch: 8})

	p, ok := m.Ports().(Ports)
	if !ok || p.Worker == nil || p.Nudge == nil || p.Hook == nil {
		t.Fatalf("ports not wired: %#v", m.Ports())
	}
	if m.Name() != "audit" || m.Prefix() != "" {
		t.Fatalf("name/prefix = %q/%q", m.Name(), m.Prefix())
	}
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure without CH: %v", err)
	}
	p.Hook(context.Background(), nil)
}

func TestNew_ClickHouseSinkEnsure(t *testing.T) {
	ch := &recordingCH{}
	m := New(modkit.Deps{CH: ch}, srepo.NewMemory(), Options{})
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(ch.execs) != 1 || !strings.Contains(ch.execs[0], "screening_audit") {
		t.Fatalf("execs = %v", ch.execs)
	}
}

func TestFromConfig_Env(t *testing.T) {
	t.Setenv("AUDIT_BATCH", "16")
	t.Setenv("AUDIT_LOG_SINK", "false")
	o := FromConfig(modkit.Deps{}.Cfg)
	if o.Batch != 16 || o.LogSink {
		t.Fatalf("opts = %+v", o)
	}
	if o.Concurrency != 2 {
		t.Fatalf("default concurrency = %d", o.Concurrency)
	}
}
