// Package ch provides a clickhouse client over clickhouse-go
package ch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL        string
	ClientName string
	ClientRole string
}

// CH wraps a native clickhouse connection
type CH struct {
	conn driver.Conn
}

// openConn is a seam for tests
var openConn = clickhouse.Open

// Open parses the dsn, stamps client info and verifies connectivity
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("ch: empty dsn")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientRole, cfg.ClientName)

	conn, err := openConn(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ch: ping: %w", err)
	}
	return &CH{conn: conn}, nil
}

// Insert appends rows to table as one native batch
func (c *CH) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	q, err := insertSQL(table, columns)
	if err != nil {
		return err
	}
	batch, err := c.conn.PrepareBatch(ctx, q)
	if err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			_ = batch.Abort()
			return fmt.Errorf("ch: row %d has %d values for %d columns", i, len(row), len(columns))
		}
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return err
		}
	}
	return batch.Send()
}

// Exec runs a statement without results, DDL included
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	return c.conn.Exec(ctx, sql, args...)
}

// Ping checks the server answers
func (c *CH) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}
	return c.conn.Ping(ctx)
}

// Close closes resources
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func insertSQL(table string, columns []string) (string, error) {
	if !ident(table) {
		return "", fmt.Errorf("ch: bad table name %q", table)
	}
	if len(columns) == 0 {
		return "", errors.New("ch: no columns")
	}
	for _, c := range columns {
		if !ident(c) {
			return "", fmt.Errorf("ch: bad column name %q", c)
		}
	}
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ")", nil
}

// ident accepts [A-Za-z_][A-Za-z0-9_.]*
func ident(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
