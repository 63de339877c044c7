// Package repo provides the Postgres audit outbox
package repo

import (
	"context"
	"errors"
	"time"

	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/store"
	"litscreen/internal/services/audit/domain"
	sdomain "litscreen/internal/services/api/screening/domain"

	"github.com/google/uuid"
)

// Repo is the outbox surface used by the relay
type Repo = domain.Outbox

type (
	// PG is a Postgres implementation of the outbox
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: repokit.RequireQueryer(q)} }

// Lease claims ready rows; expired leases are fair game again
func (r *queries) Lease(ctx context.Context, owner string, limit int, ttl time.Duration) ([]sdomain.OutboxEntry, error) {
	if owner == "" {
		owner = uuid.NewString()
	}
	const sql = `
		WITH ready AS (
			SELECT id
			  FROM screening_audit_outbox
			 WHERE delivered_at IS NULL
			   AND next_attempt_at <= now()
			   AND (leased_by IS NULL OR lease_expires_at < now())
			 ORDER BY next_attempt_at
			 LIMIT $1
			 FOR UPDATE SKIP LOCKED
		), upd AS (
			UPDATE screening_audit_outbox o
			   SET leased_by = $2,
			       lease_expires_at = now() + make_interval(secs => $3)
			 WHERE o.id IN (SELECT id FROM ready)
			RETURNING o.*
		)
		SELECT id::text, project_id, project_work_id, phase, actor_id, decision, source, occurred_at, attempts
		  FROM upd
		 ORDER BY next_attempt_at`
	out, err := store.Many(ctx, r.q, func(row store.Row) (sdomain.OutboxEntry, error) {
		var (
			e sdomain.OutboxEntry
			f = &e.Fact
		)
		err := row.Scan(&f.ID, &f.ProjectID, &f.ProjectWorkID, &f.Phase, &f.ActorID, &f.Decision, &f.Source, &f.OccurredAt, &e.Attempts)
		return e, err
	}, sql, limit, owner, ttl.Seconds())
	if err != nil {
		return nil, perr.FromPostgres(err, "lease audit facts")
	}
	return out, nil
}

func (r *queries) Ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const sql = `
		UPDATE screening_audit_outbox
		   SET delivered_at = now(), leased_by = NULL, lease_expires_at = NULL, last_error = NULL
		 WHERE id::text = ANY($1)`
	if _, err := r.q.Exec(ctx, sql, ids); err != nil {
		return perr.FromPostgres(err, "ack audit facts")
	}
	return nil
}

func (r *queries) Retry(ctx context.Context, id string, next time.Time, reason string) error {
	const sql = `
		UPDATE screening_audit_outbox
		   SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3,
		       leased_by = NULL, lease_expires_at = NULL
		 WHERE id::text = $1`
	err := store.ExecOne(ctx, r.q, sql, id, next, reason)
	if errors.Is(err, store.ErrNoRowsAffected) {
		return perr.NotFoundf("outbox entry %s not found", id)
	}
	if err != nil {
		return perr.FromPostgres(err, "retry audit fact")
	}
	return nil
}

// txOutbox runs each outbox call in its own transaction
type txOutbox struct {
	db repokit.TxRunner
	b  repokit.Binder[Repo]
}

// NewOutbox returns the Postgres outbox over a transaction runner
func NewOutbox(db repokit.TxRunner) domain.Outbox {
	if db == nil {
		panic("audit outbox requires a non nil TxRunner")
	}
	return txOutbox{db: db, b: NewPG()}
}

func (o txOutbox) Lease(ctx context.Context, owner string, limit int, ttl time.Duration) (out []sdomain.OutboxEntry, err error) {
	err = repokit.InTx(ctx, o.db, o.b, func(r Repo) error {
		out, err = r.Lease(ctx, owner, limit, ttl)
		return err
	})
	return out, err
}

func (o txOutbox) Ack(ctx context.Context, ids []string) error {
	return repokit.InTx(ctx, o.db, o.b, func(r Repo) error { return r.Ack(ctx, ids) })
}

func (o txOutbox) Retry(ctx context.Context, id string, next time.Time, reason string) error {
	return repokit.InTx(ctx, o.db, o.b, func(r Repo) error { return r.Retry(ctx, id, next, reason) })
}
