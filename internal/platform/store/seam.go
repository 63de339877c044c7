package store

import "context"

// Row scans a single result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a forward only cursor. Callers must Close it
type Rows interface {
	Row
	Next() bool
	Err() error
	Close()
}

// CommandTag reports what a write touched
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is what repositories hold. Both the pool and an open
// transaction satisfy it
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn inside one transaction; fn's error rolls it back
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the append only audit sink
type Clickhouse interface {
	Pinger
	// Insert sends rows as one batch; each row lines up with columns
	Insert(ctx context.Context, table string, columns []string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }
