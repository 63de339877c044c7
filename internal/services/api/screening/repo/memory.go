package repo

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"litscreen/internal/core/consensus"
	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/store"
	ptime "litscreen/internal/platform/time"
	"litscreen/internal/services/api/screening/domain"
)

// errNoSQL is returned by the raw SQL surface of the memory store
var errNoSQL = errors.New("memory store: raw sql is not supported")

type ledgerKey struct {
	work     string
	phase    domain.Phase
	reviewer string
}

type phaseKey struct {
	work  string
	phase domain.Phase
}

type outboxRow struct {
	entry      domain.OutboxEntry
	next       time.Time
	leasedBy   string
	leaseUntil time.Time
	delivered  bool
	lastErr    string
}

type memState struct {
	works     map[string]domain.ProjectWork
	decisions map[ledgerKey]domain.ReviewerDecision
	conflicts map[string]domain.Conflict
	byPhase   map[phaseKey]string
	outcomes  map[phaseKey]domain.PhaseOutcome
	outbox    map[phaseKey]*outboxRow
}

func newMemState() *memState {
	return &memState{
		works:     map[string]domain.ProjectWork{},
		decisions: map[ledgerKey]domain.ReviewerDecision{},
		conflicts: map[string]domain.Conflict{},
		byPhase:   map[phaseKey]string{},
		outcomes:  map[phaseKey]domain.PhaseOutcome{},
		outbox:    map[phaseKey]*outboxRow{},
	}
}

// clone copies every table; values are replaced on write, never mutated
// in place, so a shallow copy per map is a full snapshot. Outbox rows are
// pointers and are copied so relay bookkeeping also rolls back
func (s *memState) clone() *memState {
	out := &memState{
		works:     maps.Clone(s.works),
		decisions: maps.Clone(s.decisions),
		conflicts: maps.Clone(s.conflicts),
		byPhase:   maps.Clone(s.byPhase),
		outcomes:  maps.Clone(s.outcomes),
		outbox:    make(map[phaseKey]*outboxRow, len(s.outbox)),
	}
	for k, v := range s.outbox {
		cp := *v
		out.outbox[k] = &cp
	}
	return out
}

// Memory is an in process transactional store behind the same TxRunner
// seam as Postgres. Transactions run one at a time against a private copy
// of the state that is published on success and dropped on error
type Memory struct {
	mu  sync.Mutex
	st  *memState
	now func() time.Time
}

// NewMemory returns an empty store
func NewMemory() *Memory {
	return &Memory{st: newMemState(), now: ptime.UTC}
}

var _ store.TxRunner = (*Memory)(nil)

// Tx runs fn against a snapshot and publishes it when fn returns nil.
// One mutex guards every transaction, so transactions on different keys
// serialize in memory mode. The critical section is short and does no I/O,
// which is acceptable for a dev and test store; use Postgres for real
// per-key concurrency.
func (m *Memory) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{st: m.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.st = tx.st
	return nil
}

func (m *Memory) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, errNoSQL }
func (m *Memory) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, errNoSQL }
func (m *Memory) QueryRow(context.Context, string, ...any) store.Row             { return errRow{} }

// Ping lets readiness checks treat the memory store like a database
func (m *Memory) Ping(context.Context) error { return nil }

// memTx is the querier handed to Tx callbacks
type memTx struct{ st *memState }

func (t *memTx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, errNoSQL }
func (t *memTx) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, errNoSQL }
func (t *memTx) QueryRow(context.Context, string, ...any) store.Row             { return errRow{} }

type errRow struct{}

func (errRow) Scan(...any) error { return errNoSQL }

// MemoryBinder binds the memory repo to a transaction of the memory store
type MemoryBinder struct{}

// NewMemoryBinder returns the binder used with a *Memory TxRunner
func NewMemoryBinder() repokit.Binder[Repo] { return MemoryBinder{} }

// Bind panics when q is not a memory transaction; memory repos only exist inside Tx
func (MemoryBinder) Bind(q repokit.Queryer) Repo {
	tx, ok := q.(*memTx)
	if !ok {
		panic("screening repo: memory binder needs a Memory transaction")
	}
	return &memRepo{st: tx.st}
}

type memRepo struct{ st *memState }

// SetLockTimeout is a no-op; transactions already run one at a time
func (r *memRepo) SetLockTimeout(context.Context, time.Duration) error { return nil }

func (r *memRepo) AttachWork(_ context.Context, w domain.ProjectWork) error {
	for _, cur := range r.st.works {
		if cur.ProjectID == w.ProjectID && cur.WorkID == w.WorkID {
			return nil
		}
	}
	if _, ok := r.st.works[w.ID]; ok {
		return perr.DuplicateKeyf("project work %s exists", w.ID)
	}
	w.Phase, w.Status, w.FinalDecision, w.FinalizedAt = consensus.PhaseTitleAbstract, consensus.StatusPending, "", nil
	r.st.works[w.ID] = w
	return nil
}

func (r *memRepo) GetWork(_ context.Context, id string) (domain.ProjectWork, error) {
	w, ok := r.st.works[id]
	if !ok {
		return domain.ProjectWork{}, perr.NotFoundf("project work %s not found", id)
	}
	return w, nil
}

func (r *memRepo) LockWork(ctx context.Context, id string) (domain.ProjectWork, error) {
	return r.GetWork(ctx, id)
}

func (r *memRepo) UpdateWork(_ context.Context, w domain.ProjectWork) error {
	if _, ok := r.st.works[w.ID]; !ok {
		return perr.NotFoundf("project work %s not found", w.ID)
	}
	r.st.works[w.ID] = w
	return nil
}

func (r *memRepo) UpsertDecision(_ context.Context, d domain.ReviewerDecision) (domain.ReviewerDecision, error) {
	k := ledgerKey{d.ProjectWorkID, d.Phase, d.ReviewerID}
	if cur, ok := r.st.decisions[k]; ok {
		d.ID = cur.ID
	}
	r.st.decisions[k] = d
	return d, nil
}

func (r *memRepo) ListDecisions(_ context.Context, projectWorkID string, phase domain.Phase) ([]domain.ReviewerDecision, error) {
	var out []domain.ReviewerDecision
	for k, d := range r.st.decisions {
		if k.work == projectWorkID && k.phase == phase {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ReviewerID < out[j].ReviewerID
	})
	return out, nil
}

func (r *memRepo) InsertConflict(_ context.Context, c domain.Conflict) error {
	k := phaseKey{c.ProjectWorkID, c.Phase}
	if _, ok := r.st.byPhase[k]; ok {
		return perr.Invariantf("second conflict for the same work and phase")
	}
	w, ok := r.st.works[c.ProjectWorkID]
	if !ok {
		return perr.NotFoundf("project work %s not found", c.ProjectWorkID)
	}
	c.ProjectID = w.ProjectID
	c.UpdatedAt = c.CreatedAt
	c.Decisions = slices.Clone(c.Decisions)
	r.st.conflicts[c.ID] = c
	r.st.byPhase[k] = c.ID
	return nil
}

func (r *memRepo) ReplaceSnapshot(_ context.Context, conflictID string, ds []domain.ReviewerDecision, at time.Time) error {
	c, ok := r.st.conflicts[conflictID]
	if !ok {
		return perr.NotFoundf("conflict %s not found", conflictID)
	}
	if c.Status != consensus.ConflictPending {
		return domain.ErrAlreadyResolved
	}
	c.Decisions = slices.Clone(ds)
	c.UpdatedAt = at
	r.st.conflicts[conflictID] = c
	return nil
}

func (r *memRepo) GetConflict(_ context.Context, id string) (domain.Conflict, error) {
	c, ok := r.st.conflicts[id]
	if !ok {
		return domain.Conflict{}, perr.NotFoundf("conflict %s not found", id)
	}
	return c, nil
}

func (r *memRepo) ConflictFor(_ context.Context, projectWorkID string, phase domain.Phase) (domain.Conflict, bool, error) {
	id, ok := r.st.byPhase[phaseKey{projectWorkID, phase}]
	if !ok {
		return domain.Conflict{}, false, nil
	}
	return r.st.conflicts[id], true, nil
}

func (r *memRepo) ResolveConflict(_ context.Context, id string, res domain.Resolution) error {
	c, ok := r.st.conflicts[id]
	if !ok {
		return perr.NotFoundf("conflict %s not found", id)
	}
	if c.Status != consensus.ConflictPending {
		return domain.ErrAlreadyResolved
	}
	c.Status = consensus.ConflictResolved
	c.Resolution = &res
	c.UpdatedAt = res.ResolvedAt
	r.st.conflicts[id] = c
	return nil
}

func (r *memRepo) ListConflicts(_ context.Context, q domain.ConflictQuery) ([]domain.Conflict, int, error) {
	var all []domain.Conflict
	for _, c := range r.st.conflicts {
		if c.ProjectID != q.ProjectID {
			continue
		}
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		if q.Phase != "" && c.Phase != q.Phase {
			continue
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return strings.Compare(all[i].ID, all[j].ID) < 0
	})
	total := len(all)
	lo := min(max(q.Offset, 0), total)
	hi := min(lo+max(q.Limit, 1), total)
	return all[lo:hi], total, nil
}

func (r *memRepo) PhaseOutcome(_ context.Context, projectWorkID string, phase domain.Phase) (domain.PhaseOutcome, bool, error) {
	o, ok := r.st.outcomes[phaseKey{projectWorkID, phase}]
	return o, ok, nil
}

func (r *memRepo) InsertPhaseOutcome(_ context.Context, o domain.PhaseOutcome) error {
	k := phaseKey{o.ProjectWorkID, o.Phase}
	if _, ok := r.st.outcomes[k]; ok {
		return perr.Invariantf("phase finalized twice")
	}
	r.st.outcomes[k] = o
	return nil
}

func (r *memRepo) PhaseHistory(_ context.Context, projectWorkID string) ([]domain.PhaseOutcome, error) {
	var out []domain.PhaseOutcome
	for _, p := range consensus.Phases {
		if o, ok := r.st.outcomes[phaseKey{projectWorkID, p}]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memRepo) EnqueueAudit(_ context.Context, f domain.AuditFact) error {
	k := phaseKey{f.ProjectWorkID, f.Phase}
	if _, ok := r.st.outbox[k]; ok {
		return perr.Invariantf("second audit fact for the same phase")
	}
	r.st.outbox[k] = &outboxRow{entry: domain.OutboxEntry{Fact: f}, next: f.OccurredAt}
	return nil
}

func (r *memRepo) PhaseCounts(_ context.Context, projectID string) (domain.PhaseCounts, error) {
	out := newCounts(projectID)
	for _, w := range r.st.works {
		if w.ProjectID == projectID {
			addStatus(&out, w.Status, 1)
		}
	}
	for k, o := range r.st.outcomes {
		if r.st.works[k.work].ProjectID == projectID {
			addOutcome(&out, o.Phase, o.Decision, 1)
		}
	}
	return out, nil
}

// Lease hands out up to limit undelivered facts whose lease is free or expired
func (m *Memory) Lease(_ context.Context, owner string, limit int, ttl time.Duration) ([]domain.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var ready []*outboxRow
	for _, row := range m.st.outbox {
		if row.delivered || row.next.After(now) {
			continue
		}
		if row.leasedBy != "" && row.leaseUntil.After(now) {
			continue
		}
		ready = append(ready, row)
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].next.Before(ready[j].next) })
	if len(ready) > limit {
		ready = ready[:limit]
	}
	out := make([]domain.OutboxEntry, 0, len(ready))
	for _, row := range ready {
		row.leasedBy, row.leaseUntil = owner, now.Add(ttl)
		out = append(out, row.entry)
	}
	return out, nil
}

// Ack marks facts delivered
func (m *Memory) Ack(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, row := range m.st.outbox {
		if want[row.entry.Fact.ID] {
			row.delivered, row.leasedBy = true, ""
		}
	}
	return nil
}

// Retry releases a lease and schedules the next attempt
func (m *Memory) Retry(_ context.Context, id string, next time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.st.outbox {
		if row.entry.Fact.ID == id {
			row.entry.Attempts++
			row.next, row.lastErr, row.leasedBy = next, reason, ""
			return nil
		}
	}
	return perr.NotFoundf("outbox entry %s not found", id)
}

// Undelivered counts facts still waiting for a relay
func (m *Memory) Undelivered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.st.outbox {
		if !row.delivered {
			n++
		}
	}
	return n
}
