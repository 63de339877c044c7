package store

import (
	"context"
	"errors"
	"fmt"

	perr "litscreen/internal/platform/errors"
)

var (
	// ErrNoRowsAffected is returned by ExecOne when a write matched nothing
	ErrNoRowsAffected = errors.New("store: no rows affected")

	errExtraRows = errors.New("store: expected 1 row, got more")
)

// ExecOne runs a write that must touch exactly one row
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n != 1 {
		if n == 0 {
			return ErrNoRowsAffected
		}
		return fmt.Errorf("store: %d rows affected, want 1", n)
	}
	return nil
}

// Scalar reads the first column of the first row
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (v T, err error) {
	if err = q.QueryRow(ctx, sql, args...).Scan(&v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// One maps exactly one row. No rows is perr.ErrNotFound
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var (
		out  T
		seen int
	)
	err := walk(ctx, q, sql, args, func(r Row) error {
		if seen++; seen > 1 {
			return errExtraRows
		}
		v, err := scan(r)
		out = v
		return err
	})
	switch {
	case err != nil:
		var zero T
		return zero, err
	case seen == 0:
		var zero T
		return zero, perr.ErrNotFound
	}
	return out, nil
}

// Many maps every row in order
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	var out []T
	err := walk(ctx, q, sql, args, func(r Row) error {
		v, err := scan(r)
		if err == nil {
			out = append(out, v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// walk feeds each row to fn and stops at the first error
func walk(ctx context.Context, q RowQuerier, sql string, args []any, fn func(Row) error) error {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SetLocal sets a transaction scoped setting such as lock_timeout.
// set_config keeps the value a bind parameter
func SetLocal(ctx context.Context, q RowQuerier, name, value string) error {
	_, err := q.Exec(ctx, "SELECT set_config($1, $2, true)", name, value)
	return err
}
