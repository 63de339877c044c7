// Package repokit is the seam between services and their repositories:
// a repo is bound to whatever Queryer the current transaction hands out
package repokit

import (
	"context"
	"fmt"

	"litscreen/internal/platform/store"
)

type (
	// Queryer is what a bound repo issues SQL through
	Queryer = store.RowQuerier

	// TxRunner opens transactions; the memory store implements it too
	TxRunner = store.TxRunner

	// Rows is a result set
	Rows = store.Rows

	// Row is a single result row
	Row = store.Row

	// CommandTag reports rows affected
	CommandTag = store.CommandTag
)

// Binder builds a repo over one Queryer. Services hold a Binder and bind
// it per transaction so every call in fn shares the same snapshot
type Binder[T any] interface {
	Bind(Queryer) T
}

// RequireQueryer panics on a nil Queryer; binders call it so wiring mistakes
// surface at bind time instead of on first query
func RequireQueryer(q Queryer) Queryer {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return q
}

// InTx runs fn with b bound to a fresh transaction on tx.
// fn returning an error rolls the transaction back
func InTx[T any](ctx context.Context, tx TxRunner, b Binder[T], fn func(r T) error) error {
	return tx.Tx(ctx, func(q Queryer) error {
		return fn(b.Bind(RequireQueryer(q)))
	})
}

// BeginHook runs first in every transaction opened through WithBeginHooks,
// e.g. to SET LOCAL a lock timeout before any row is touched
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns a TxRunner whose transactions run hooks in order
// before fn. Statements issued outside a transaction pass straight through
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return inner
	}
	return hooked{inner, hooks}
}

type hooked struct {
	TxRunner
	before []BeginHook
}

func (h hooked) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for i, run := range h.before {
			if err := run(ctx, q); err != nil {
				return fmt.Errorf("begin hook %d: %w", i, err)
			}
		}
		return fn(q)
	})
}
