package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/store"
	"litscreen/internal/services/api/screening/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type (
	// PG is a Postgres implementation of the screening repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: repokit.RequireQueryer(q)} }

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const workCols = `id, project_id, work_id, phase, status, COALESCE(final_decision, ''), finalized_at, updated_at`

const conflictCols = `c.id::text, c.project_work_id, w.project_id, c.phase, c.status, c.decisions,
	c.resolver_id, c.resolution_decision, c.resolution_reasoning, c.resolved_at, c.created_at, c.updated_at`

func (r *queries) SetLockTimeout(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return store.SetLocal(ctx, r.q, "lock_timeout", strconv.FormatInt(d.Milliseconds(), 10)+"ms")
}

func (r *queries) AttachWork(ctx context.Context, w domain.ProjectWork) error {
	const sql = `
		INSERT INTO project_works (id, project_id, work_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, work_id) DO NOTHING`
	_, err := r.q.Exec(ctx, sql, w.ID, w.ProjectID, w.WorkID)
	return pgErr(err, "attach work")
}

func (r *queries) GetWork(ctx context.Context, id string) (domain.ProjectWork, error) {
	return r.work(ctx, `SELECT `+workCols+` FROM project_works WHERE id = $1`, id)
}

// LockWork takes the row lock that serializes every writer of this work
func (r *queries) LockWork(ctx context.Context, id string) (domain.ProjectWork, error) {
	return r.work(ctx, `SELECT `+workCols+` FROM project_works WHERE id = $1 FOR UPDATE`, id)
}

func (r *queries) work(ctx context.Context, sql, id string) (domain.ProjectWork, error) {
	var w domain.ProjectWork
	err := r.q.QueryRow(ctx, sql, id).Scan(
		&w.ID, &w.ProjectID, &w.WorkID, &w.Phase, &w.Status, &w.FinalDecision, &w.FinalizedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ProjectWork{}, perr.NotFoundf("project work %s not found", id)
	}
	return w, pgErr(err, "read work")
}

func (r *queries) UpdateWork(ctx context.Context, w domain.ProjectWork) error {
	const sql = `
		UPDATE project_works
		   SET phase = $2, status = $3, final_decision = NULLIF($4, ''), finalized_at = $5, updated_at = $6
		 WHERE id = $1`
	err := store.ExecOne(ctx, r.q, sql, w.ID, w.Phase, w.Status, w.FinalDecision, w.FinalizedAt, w.UpdatedAt)
	if errors.Is(err, store.ErrNoRowsAffected) {
		return perr.NotFoundf("project work %s not found", w.ID)
	}
	return pgErr(err, "update work")
}

func (r *queries) UpsertDecision(ctx context.Context, d domain.ReviewerDecision) (domain.ReviewerDecision, error) {
	const sql = `
		INSERT INTO screening_decisions (id, project_work_id, phase, reviewer_id, decision, reasoning, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_work_id, phase, reviewer_id) DO UPDATE
		   SET decision = EXCLUDED.decision,
		       reasoning = EXCLUDED.reasoning,
		       submitted_at = EXCLUDED.submitted_at
		RETURNING id::text`
	err := r.q.QueryRow(ctx, sql,
		d.ID, d.ProjectWorkID, d.Phase, d.ReviewerID, d.Decision, d.Reasoning, d.SubmittedAt,
	).Scan(&d.ID)
	return d, pgErr(err, "upsert decision")
}

func (r *queries) ListDecisions(ctx context.Context, projectWorkID string, phase domain.Phase) ([]domain.ReviewerDecision, error) {
	const sql = `
		SELECT id::text, project_work_id, phase, reviewer_id, decision, reasoning, submitted_at
		  FROM screening_decisions
		 WHERE project_work_id = $1 AND phase = $2
		 ORDER BY submitted_at, reviewer_id`
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.ReviewerDecision, error) {
		var d domain.ReviewerDecision
		err := row.Scan(&d.ID, &d.ProjectWorkID, &d.Phase, &d.ReviewerID, &d.Decision, &d.Reasoning, &d.SubmittedAt)
		return d, err
	}, sql, projectWorkID, phase)
	return out, pgErr(err, "list decisions")
}

func (r *queries) InsertConflict(ctx context.Context, c domain.Conflict) error {
	snap, err := json.Marshal(c.Decisions)
	if err != nil {
		return err
	}
	const sql = `
		INSERT INTO screening_conflicts (id, project_work_id, phase, status, decisions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $6)`
	_, err = r.q.Exec(ctx, sql, c.ID, c.ProjectWorkID, c.Phase, c.Status, string(snap), c.CreatedAt)
	if perr.IsDuplicateKey(err) {
		return perr.Wrap(err, perr.ErrorCodeInvariant, "second conflict for the same work and phase")
	}
	return pgErr(err, "insert conflict")
}

func (r *queries) ReplaceSnapshot(ctx context.Context, conflictID string, ds []domain.ReviewerDecision, at time.Time) error {
	snap, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	const sql = `
		UPDATE screening_conflicts SET decisions = $2::jsonb, updated_at = $3
		 WHERE id = $1 AND status = 'PENDING'`
	err = store.ExecOne(ctx, r.q, sql, conflictID, string(snap), at)
	if errors.Is(err, store.ErrNoRowsAffected) {
		return domain.ErrAlreadyResolved
	}
	return pgErr(err, "replace snapshot")
}

func (r *queries) GetConflict(ctx context.Context, id string) (domain.Conflict, error) {
	sql := `SELECT ` + conflictCols + `
		  FROM screening_conflicts c JOIN project_works w ON w.id = c.project_work_id
		 WHERE c.id = $1`
	c, err := store.One(ctx, r.q, scanConflict, sql, id)
	if errors.Is(err, perr.ErrNotFound) {
		return domain.Conflict{}, perr.NotFoundf("conflict %s not found", id)
	}
	return c, pgErr(err, "read conflict")
}

func (r *queries) ConflictFor(ctx context.Context, projectWorkID string, phase domain.Phase) (domain.Conflict, bool, error) {
	sql := `SELECT ` + conflictCols + `
		  FROM screening_conflicts c JOIN project_works w ON w.id = c.project_work_id
		 WHERE c.project_work_id = $1 AND c.phase = $2`
	c, err := store.One(ctx, r.q, scanConflict, sql, projectWorkID, phase)
	switch {
	case errors.Is(err, perr.ErrNotFound):
		return domain.Conflict{}, false, nil
	case err != nil:
		return domain.Conflict{}, false, pgErr(err, "read conflict")
	}
	return c, true, nil
}

func (r *queries) ResolveConflict(ctx context.Context, id string, res domain.Resolution) error {
	const sql = `
		UPDATE screening_conflicts
		   SET status = 'RESOLVED', resolver_id = $2, resolution_decision = $3,
		       resolution_reasoning = $4, resolved_at = $5, updated_at = $5
		 WHERE id = $1 AND status = 'PENDING'`
	err := store.ExecOne(ctx, r.q, sql, id, res.ResolverID, res.Decision, res.Reasoning, res.ResolvedAt)
	if errors.Is(err, store.ErrNoRowsAffected) {
		return domain.ErrAlreadyResolved
	}
	return pgErr(err, "resolve conflict")
}

// ListConflicts builds the filtered page and its total in one statement
func (r *queries) ListConflicts(ctx context.Context, q domain.ConflictQuery) ([]domain.Conflict, int, error) {
	where := sq.And{sq.Eq{"w.project_id": q.ProjectID}}
	if q.Status != "" {
		where = append(where, sq.Eq{"c.status": string(q.Status)})
	}
	if q.Phase != "" {
		where = append(where, sq.Eq{"c.phase": string(q.Phase)})
	}
	sql, args, err := psql.
		Select(conflictCols, "count(*) OVER () AS total").
		From("screening_conflicts c").
		Join("project_works w ON w.id = c.project_work_id").
		Where(where).
		OrderBy("c.created_at DESC", "c.id").
		Limit(uint64(max(q.Limit, 1))).
		Offset(uint64(max(q.Offset, 0))).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build conflict query: %w", err)
	}

	total := 0
	items, err := store.Many(ctx, r.q, func(row store.Row) (domain.Conflict, error) {
		return scanConflictInto(row, &total)
	}, sql, args...)
	if err != nil {
		return nil, 0, pgErr(err, "list conflicts")
	}
	if len(items) == 0 && q.Offset > 0 {
		// the window total is unavailable past the last row
		n, err := r.countConflicts(ctx, where)
		return items, n, err
	}
	return items, total, nil
}

func (r *queries) countConflicts(ctx context.Context, where sq.And) (int, error) {
	sql, args, err := psql.Select("count(*)").
		From("screening_conflicts c").
		Join("project_works w ON w.id = c.project_work_id").
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build conflict count: %w", err)
	}
	n, err := store.Scalar[int](ctx, r.q, sql, args...)
	return n, pgErr(err, "count conflicts")
}

func scanConflict(row store.Row) (domain.Conflict, error) { return scanConflictInto(row) }

func scanConflictInto(row store.Row, extra ...any) (domain.Conflict, error) {
	var (
		c                     domain.Conflict
		snap                  []byte
		resolver, dec, reason *string
		resolvedAt            *time.Time
	)
	dest := []any{
		&c.ID, &c.ProjectWorkID, &c.ProjectID, &c.Phase, &c.Status, &snap,
		&resolver, &dec, &reason, &resolvedAt, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return c, err
	}
	if err := json.Unmarshal(snap, &c.Decisions); err != nil {
		return c, fmt.Errorf("decode conflict snapshot: %w", err)
	}
	if resolvedAt != nil {
		c.Resolution = &domain.Resolution{
			ResolverID: deref(resolver),
			Decision:   domain.Decision(deref(dec)),
			Reasoning:  deref(reason),
			ResolvedAt: *resolvedAt,
		}
	}
	return c, nil
}

func (r *queries) PhaseOutcome(ctx context.Context, projectWorkID string, phase domain.Phase) (domain.PhaseOutcome, bool, error) {
	const sql = `
		SELECT project_work_id, phase, decision, source, actor_id, COALESCE(conflict_id::text, ''), decided_at
		  FROM screening_phase_outcomes
		 WHERE project_work_id = $1 AND phase = $2`
	o, err := store.One(ctx, r.q, scanOutcome, sql, projectWorkID, phase)
	switch {
	case errors.Is(err, perr.ErrNotFound):
		return domain.PhaseOutcome{}, false, nil
	case err != nil:
		return domain.PhaseOutcome{}, false, pgErr(err, "read phase outcome")
	}
	return o, true, nil
}

// InsertPhaseOutcome is the storage side guard for exactly once finalization
func (r *queries) InsertPhaseOutcome(ctx context.Context, o domain.PhaseOutcome) error {
	const sql = `
		INSERT INTO screening_phase_outcomes (project_work_id, phase, decision, source, actor_id, conflict_id, decided_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::uuid, $7)`
	_, err := r.q.Exec(ctx, sql, o.ProjectWorkID, o.Phase, o.Decision, o.Source, o.ActorID, o.ConflictID, o.DecidedAt)
	if perr.IsDuplicateKey(err) {
		return perr.Wrap(err, perr.ErrorCodeInvariant, "phase finalized twice")
	}
	return pgErr(err, "insert phase outcome")
}

func (r *queries) PhaseHistory(ctx context.Context, projectWorkID string) ([]domain.PhaseOutcome, error) {
	const sql = `
		SELECT project_work_id, phase, decision, source, actor_id, COALESCE(conflict_id::text, ''), decided_at
		  FROM screening_phase_outcomes
		 WHERE project_work_id = $1
		 ORDER BY decided_at`
	out, err := store.Many(ctx, r.q, scanOutcome, sql, projectWorkID)
	return out, pgErr(err, "phase history")
}

func scanOutcome(row store.Row) (domain.PhaseOutcome, error) {
	var o domain.PhaseOutcome
	err := row.Scan(&o.ProjectWorkID, &o.Phase, &o.Decision, &o.Source, &o.ActorID, &o.ConflictID, &o.DecidedAt)
	return o, err
}

func (r *queries) EnqueueAudit(ctx context.Context, f domain.AuditFact) error {
	const sql = `
		INSERT INTO screening_audit_outbox
		       (id, project_id, project_work_id, phase, actor_id, decision, source, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, sql,
		f.ID, f.ProjectID, f.ProjectWorkID, f.Phase, f.ActorID, f.Decision, f.Source, f.OccurredAt,
	)
	if perr.IsDuplicateKey(err) {
		return perr.Wrap(err, perr.ErrorCodeInvariant, "second audit fact for the same phase")
	}
	return pgErr(err, "enqueue audit fact")
}

// PhaseCounts reads statuses and outcomes in one statement so both halves
// come from the same snapshot
func (r *queries) PhaseCounts(ctx context.Context, projectID string) (domain.PhaseCounts, error) {
	const sql = `
		WITH w AS (
			SELECT id, status FROM project_works WHERE project_id = $1
		)
		SELECT 'status', status, '', count(*) FROM w GROUP BY status
		UNION ALL
		SELECT 'outcome', o.phase, o.decision, count(*)
		  FROM screening_phase_outcomes o JOIN w ON w.id = o.project_work_id
		 GROUP BY o.phase, o.decision`

	type line struct {
		kind, k1, k2 string
		n            int
	}
	lines, err := store.Many(ctx, r.q, func(row store.Row) (line, error) {
		var l line
		err := row.Scan(&l.kind, &l.k1, &l.k2, &l.n)
		return l, err
	}, sql, projectID)
	if err != nil {
		return domain.PhaseCounts{}, pgErr(err, "phase counts")
	}

	out := newCounts(projectID)
	for _, l := range lines {
		if l.kind == "status" {
			addStatus(&out, domain.Status(l.k1), l.n)
			continue
		}
		addOutcome(&out, domain.Phase(l.k1), domain.Decision(l.k2), l.n)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// pgErr classifies driver errors and leaves our own errors alone
func pgErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	if _, ok := perr.ExtractPgError(err); ok {
		return perr.FromPostgres(err, msg)
	}
	return err
}
