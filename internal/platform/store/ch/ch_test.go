package ch

import (
	"context"
	"strings"
	"testing"
)

func TestInsertSQL(t *testing.T) {
	got, err := insertSQL("screening_audit", []string{"fact_id", "phase"})
	if err != nil {
		t.Fatalf("insertSQL: %v", err)
	}
	if got != "INSERT INTO screening_audit (fact_id, phase)" {
		t.Fatalf("got %q", got)
	}

	bad := []struct {
		table string
		cols  []string
	}{
		{"", []string{"a"}},
		{"t; DROP TABLE x", []string{"a"}},
		{"1table", []string{"a"}},
		{"t", nil},
		{"t", []string{"a b"}},
	}
	for _, b := range bad {
		if _, err := insertSQL(b.table, b.cols); err == nil {
			t.Fatalf("expected error for %q %v", b.table, b.cols)
		}
	}
}

func TestIdent(t *testing.T) {
	for _, ok := range []string{"a", "_x", "db.table", "t1"} {
		if !ident(ok) {
			t.Fatalf("%q should be an identifier", ok)
		}
	}
	for _, no := range []string{"", "9a", ".a", "a-b", "a'"} {
		if ident(no) {
			t.Fatalf("%q should not be an identifier", no)
		}
	}
}

func TestBuildClientInfo(t *testing.T) {
	ci := BuildClientInfo("relay", "")
	if len(ci.Products) != 4 {
		t.Fatalf("products = %d", len(ci.Products))
	}
	if ci.Products[0].Name != "litscreen" || ci.Products[0].Version != "relay" {
		t.Fatalf("first product = %+v", ci.Products[0])
	}
	if !strings.HasPrefix(ci.Products[1].Version, "go") {
		t.Fatalf("go version = %q", ci.Products[1].Version)
	}
	if BuildClientInfo("", "x").Products[0].Version != "unknown" {
		t.Fatal("empty role should read unknown")
	}
}

func TestOpen_RejectsEmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNilClient(t *testing.T) {
	var c *CH
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("nil ping should fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
