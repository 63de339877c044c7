package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"litscreen/internal/platform/logger"

	"github.com/rs/zerolog"
)

func TestPoolConfig_ApplicationName(t *testing.T) {
	pc, err := poolConfig(Config{URL: "postgres://u:p@localhost:5432/db", MaxConns: 7, ApplicationName: "litscreen-api"})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if pc.MaxConns != 7 {
		t.Fatalf("MaxConns = %d", pc.MaxConns)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "litscreen-api" {
		t.Fatalf("application_name = %q", got)
	}

	pc, err = poolConfig(Config{URL: "postgres://u:p@localhost:5432/db?application_name=psql", ApplicationName: "litscreen-api"})
	if err != nil {
		t.Fatalf("poolConfig: %v", err)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "psql" {
		t.Fatalf("dsn application_name should win, got %q", got)
	}
}

func TestPoolConfig_BadURL(t *testing.T) {
	if _, err := poolConfig(Config{URL: "::not a url"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func traceOnce(t *testing.T, ctx context.Context, ev QueryEvent) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	tr := Tracer(zerolog.New(&buf))
	tr.OnQuery(ctx, ev)
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	return out
}

func TestTracer_Levels(t *testing.T) {
	ctx := logger.WithRequest(context.Background(), "req-1", "")

	got := traceOnce(t, ctx, QueryEvent{SQL: "SELECT\n   1", ElapsedUS: 1500})
	if got["level"] != "debug" || got["sql"] != "SELECT 1" || got["request_id"] != "req-1" || got["component"] != "pg" {
		t.Fatalf("plain event = %v", got)
	}

	got = traceOnce(t, context.Background(), QueryEvent{SQL: "SELECT 1", Slow: true})
	if got["level"] != "warn" {
		t.Fatalf("slow level = %v", got["level"])
	}

	got = traceOnce(t, context.Background(), QueryEvent{SQL: "SELECT 1", Err: errors.New("deadlock detected")})
	if got["level"] != "error" || got["error"] != "deadlock detected" {
		t.Fatalf("error event = %v", got)
	}

	got = traceOnce(t, context.Background(), QueryEvent{SQL: "SELECT 1", Err: errors.New("no rows in result set")})
	if got["level"] != "debug" {
		t.Fatalf("no rows should stay quiet, got %v", got["level"])
	}
}
