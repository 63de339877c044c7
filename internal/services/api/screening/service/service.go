// Package service runs the screening workflows: decision intake, conflict
// detection, adjudication and phase finalization
package service

import (
	"context"
	"strings"
	"time"

	"litscreen/internal/core/consensus"
	"litscreen/internal/core/keylock"
	"litscreen/internal/core/normalize"
	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/logger"
	ptime "litscreen/internal/platform/time"
	"litscreen/internal/services/api/screening/domain"
	"litscreen/internal/services/api/screening/repo"

	"github.com/google/uuid"
)

// Service is the public service port
type Service interface{ domain.ServicePort }

// Svc implements the service port
type Svc struct {
	db       repokit.TxRunner
	writer   repokit.TxRunner
	binder   repokit.Binder[repo.Repo]
	policies domain.PolicyProvider
	roles    domain.RoleProvider
	locks    *keylock.Locks
	hooks    []domain.FactHook
	log      *logger.Logger
	now      func() time.Time

	lockTimeout time.Duration
	retryMax    int
	retryBase   time.Duration
}

// Options control service behavior
type Options struct {
	// Policies and Roles are required
	Policies domain.PolicyProvider
	Roles    domain.RoleProvider

	// LockTimeout bounds the wait for a work's exclusion, both in process and on the row lock
	LockTimeout time.Duration
	// RetryMax is how many times a contended operation is retried before surfacing
	RetryMax  int
	RetryBase time.Duration

	// Hooks run after a finalizing transaction committed
	Hooks []domain.FactHook

	Locks *keylock.Locks
	Log   *logger.Logger
	Now   func() time.Time
}

// New constructs the service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], opt Options) *Svc {
	if db == nil {
		panic("screening.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("screening.Service requires a non nil Repo binder")
	}
	if opt.Policies == nil || opt.Roles == nil {
		panic("screening.Service requires policy and role providers")
	}

	s := &Svc{
		db:          db,
		binder:      binder,
		policies:    opt.Policies,
		roles:       opt.Roles,
		locks:       opt.Locks,
		hooks:       opt.Hooks,
		log:         opt.Log,
		now:         opt.Now,
		lockTimeout: opt.LockTimeout,
		retryMax:    opt.RetryMax,
		retryBase:   opt.RetryBase,
	}
	if s.locks == nil {
		s.locks = keylock.New()
	}
	if s.log == nil {
		s.log = logger.Named("screening")
	}
	s.now = ptime.Or(s.now)
	if s.lockTimeout <= 0 {
		s.lockTimeout = 2 * time.Second
	}
	if s.retryMax < 0 {
		s.retryMax = 0
	}
	if s.retryBase <= 0 {
		s.retryBase = 50 * time.Millisecond
	}

	// every write transaction bounds its row lock wait the same way
	s.writer = repokit.WithBeginHooks(db, func(ctx context.Context, q repokit.Queryer) error {
		return binder.Bind(q).SetLockTimeout(ctx, s.lockTimeout)
	})
	return s
}

// AddHook registers a post commit fact hook; call before serving traffic
func (s *Svc) AddHook(h domain.FactHook) { s.hooks = append(s.hooks, h) }

// SubmitDecision records a reviewer's decision and evaluates the pool in the same transaction
func (s *Svc) SubmitDecision(ctx context.Context, in domain.SubmitInput) (domain.SubmitResult, error) {
	if strings.TrimSpace(in.ReviewerID) == "" {
		return domain.SubmitResult{}, perr.Unauthorizedf("missing reviewer identity")
	}
	if in.ProjectWorkID == "" {
		return domain.SubmitResult{}, perr.WithField(perr.Validationf("project work id is required"), "project_work_id")
	}
	if !in.Phase.Valid() {
		return domain.SubmitResult{}, perr.WithField(perr.Validationf("unknown phase %q", in.Phase), "phase")
	}
	if !in.Decision.Valid() {
		return domain.SubmitResult{}, perr.WithField(perr.Validationf("unknown decision %q", in.Decision), "decision")
	}
	reasoning, err := cleanReasoning(in.Reasoning)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	w, err := s.work(ctx, in.ProjectWorkID)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if err := s.authorize(ctx, w.ProjectID, in.ReviewerID, domain.Role.CanScreen, "screen"); err != nil {
		return domain.SubmitResult{}, err
	}
	pol, err := s.policies.Policy(ctx, w.ProjectID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	var (
		res   domain.SubmitResult
		facts []domain.AuditFact
	)
	err = s.exclusive(ctx, lockKey(in.ProjectWorkID, in.Phase), func(r repo.Repo) error {
		facts = nil

		w, err := r.LockWork(ctx, in.ProjectWorkID)
		if err != nil {
			return err
		}
		if err := consensus.Admit(w.State(), in.Phase); err != nil {
			return err
		}

		now := s.now()
		d, err := r.UpsertDecision(ctx, domain.ReviewerDecision{
			ID:            uuid.NewString(),
			ProjectWorkID: w.ID,
			Phase:         in.Phase,
			ReviewerID:    in.ReviewerID,
			Decision:      in.Decision,
			Reasoning:     reasoning,
			SubmittedAt:   now,
		})
		if err != nil {
			return err
		}
		ledger, err := r.ListDecisions(ctx, w.ID, in.Phase)
		if err != nil {
			return err
		}

		out := consensus.Evaluate(pool(ledger), pol.RequiredReviewers)
		res = domain.SubmitResult{Outcome: out.Kind, Decision: d}
		switch out.Kind {
		case consensus.NotReady:
			w.Status = consensus.Started(w.Status)
			w.UpdatedAt = now
			if err := r.UpdateWork(ctx, w); err != nil {
				return err
			}
		case consensus.Consensus:
			w, facts, err = s.finalize(ctx, r, w, closing{
				phase: in.Phase, decision: out.Decision, source: consensus.SourceConsensus, actor: in.ReviewerID,
			}, now)
			if err != nil {
				return err
			}
		case consensus.Conflict:
			id, err := s.openConflict(ctx, r, w, in.Phase, ledger, now)
			if err != nil {
				return err
			}
			res.ConflictID = id
			w.Status = consensus.StatusConflict
			w.UpdatedAt = now
			if err := r.UpdateWork(ctx, w); err != nil {
				return err
			}
		}
		res.Work = w
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	s.publish(ctx, facts)
	return res, nil
}

// openConflict records the disagreement or refreshes the snapshot of the one already on file
func (s *Svc) openConflict(ctx context.Context, r repo.Repo, w domain.ProjectWork, phase domain.Phase, ledger []domain.ReviewerDecision, now time.Time) (string, error) {
	cur, ok, err := r.ConflictFor(ctx, w.ID, phase)
	if err != nil {
		return "", err
	}
	if ok {
		if err := r.ReplaceSnapshot(ctx, cur.ID, ledger, now); err != nil {
			return "", err
		}
		return cur.ID, nil
	}

	c := domain.Conflict{
		ID:            uuid.NewString(),
		ProjectWorkID: w.ID,
		ProjectID:     w.ProjectID,
		Phase:         phase,
		Status:        consensus.ConflictPending,
		Decisions:     ledger,
		CreatedAt:     now,
	}
	if err := r.InsertConflict(ctx, c); err != nil {
		return "", err
	}
	s.log.Info().
		Str("conflict_id", c.ID).
		Str("project_work_id", w.ID).
		Str("phase", string(phase)).
		Int("decisions", len(ledger)).
		Msg("screening: conflict opened")
	return c.ID, nil
}

// ResolveConflict adjudicates a pending conflict and finalizes its phase
func (s *Svc) ResolveConflict(ctx context.Context, in domain.ResolveInput) (domain.ResolveResult, error) {
	if strings.TrimSpace(in.ResolverID) == "" {
		return domain.ResolveResult{}, perr.Unauthorizedf("missing resolver identity")
	}
	if !in.Decision.Final() {
		return domain.ResolveResult{}, perr.WithField(perr.Validationf("a resolution must be INCLUDE or EXCLUDE, got %q", in.Decision), "decision")
	}
	reasoning, err := cleanReasoning(in.Reasoning)
	if err != nil {
		return domain.ResolveResult{}, err
	}

	c, err := s.conflict(ctx, in.ConflictID)
	if err != nil {
		return domain.ResolveResult{}, err
	}
	if err := s.authorize(ctx, c.ProjectID, in.ResolverID, domain.Role.CanAdjudicate, "adjudicate"); err != nil {
		return domain.ResolveResult{}, err
	}
	if c.Status == consensus.ConflictResolved {
		return domain.ResolveResult{}, domain.ErrAlreadyResolved
	}

	var (
		out   domain.ResolveResult
		facts []domain.AuditFact
	)
	err = s.exclusive(ctx, lockKey(c.ProjectWorkID, c.Phase), func(r repo.Repo) error {
		facts = nil

		w, err := r.LockWork(ctx, c.ProjectWorkID)
		if err != nil {
			return err
		}
		cur, err := r.GetConflict(ctx, c.ID)
		if err != nil {
			return err
		}
		if cur.Status != consensus.ConflictPending {
			return domain.ErrAlreadyResolved
		}
		if w.Phase != cur.Phase || w.Status != consensus.StatusConflict {
			err := perr.Invariantf("conflict %s is pending but work %s is %s in %s", cur.ID, w.ID, w.Status, w.Phase)
			s.log.Error().Err(err).Str("conflict_id", cur.ID).Msg("screening: conflict out of step with work")
			return err
		}

		now := s.now()
		res := domain.Resolution{ResolverID: in.ResolverID, Decision: in.Decision, Reasoning: reasoning, ResolvedAt: now}
		if err := r.ResolveConflict(ctx, cur.ID, res); err != nil {
			return err
		}
		w, facts, err = s.finalize(ctx, r, w, closing{
			phase: cur.Phase, decision: in.Decision, source: consensus.SourceAdjudication,
			actor: in.ResolverID, conflictID: cur.ID,
		}, now)
		if err != nil {
			return err
		}

		cur.Status = consensus.ConflictResolved
		cur.Resolution = &res
		cur.UpdatedAt = now
		out = domain.ResolveResult{Conflict: cur, Work: w}
		return nil
	})
	if err != nil {
		return domain.ResolveResult{}, err
	}

	s.publish(ctx, facts)
	return out, nil
}

// ListDecisions returns the ledger page, withholding peers from a blinded requester
func (s *Svc) ListDecisions(ctx context.Context, q domain.ListDecisionsQuery) (domain.DecisionList, error) {
	w, err := s.work(ctx, q.ProjectWorkID)
	if err != nil {
		return domain.DecisionList{}, err
	}
	if err := s.authorize(ctx, w.ProjectID, q.RequesterID, domain.Role.Valid, "read decisions"); err != nil {
		return domain.DecisionList{}, err
	}
	phase := q.Phase
	if phase == "" {
		phase = w.Phase
	}
	if !phase.Valid() {
		return domain.DecisionList{}, perr.WithField(perr.Validationf("unknown phase %q", phase), "phase")
	}
	pol, err := s.policies.Policy(ctx, w.ProjectID)
	if err != nil {
		return domain.DecisionList{}, err
	}

	out := domain.DecisionList{ProjectWorkID: w.ID, Phase: phase, Decisions: []domain.ReviewerDecision{}}
	err = s.read(ctx, func(r repo.Repo) error {
		ledger, err := r.ListDecisions(ctx, w.ID, phase)
		if err != nil {
			return err
		}
		visible, err := peersVisible(ctx, r, pol, w.ID, phase, q.RequesterID, ledger)
		if err != nil {
			return err
		}
		if !visible {
			out.Hidden = true
			return nil
		}
		out.Decisions = append(out.Decisions, ledger...)
		return nil
	})
	return out, err
}

// peersVisible applies the blind screening rule. The requester's own row is the
// only one they could see while blinded, and it does not exist yet
func peersVisible(ctx context.Context, r repo.Repo, pol domain.Policy, workID string, phase domain.Phase, requester string, ledger []domain.ReviewerDecision) (bool, error) {
	if !pol.BlindScreening {
		return true, nil
	}
	for _, d := range ledger {
		if d.ReviewerID == requester {
			return true, nil
		}
	}
	_, conflicted, err := r.ConflictFor(ctx, workID, phase)
	return conflicted, err
}

// PreviewConflict gives an adjudicator the conflict with the full ledger
func (s *Svc) PreviewConflict(ctx context.Context, conflictID, resolverID string) (domain.ConflictPreview, error) {
	c, err := s.conflict(ctx, conflictID)
	if err != nil {
		return domain.ConflictPreview{}, err
	}
	if err := s.authorize(ctx, c.ProjectID, resolverID, domain.Role.CanAdjudicate, "adjudicate"); err != nil {
		return domain.ConflictPreview{}, err
	}

	out := domain.ConflictPreview{Conflict: c}
	err = s.read(ctx, func(r repo.Repo) error {
		var err error
		if out.Work, err = r.GetWork(ctx, c.ProjectWorkID); err != nil {
			return err
		}
		out.Ledger, err = r.ListDecisions(ctx, c.ProjectWorkID, c.Phase)
		return err
	})
	return out, err
}

// ListConflicts pages a project's conflicts for adjudicators
func (s *Svc) ListConflicts(ctx context.Context, q domain.ConflictQuery) (domain.ConflictPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return domain.ConflictPage{}, perr.WithField(perr.Validationf("unknown conflict status %q", q.Status), "status")
	}
	if q.Phase != "" && !q.Phase.Valid() {
		return domain.ConflictPage{}, perr.WithField(perr.Validationf("unknown phase %q", q.Phase), "phase")
	}
	if err := s.authorize(ctx, q.ProjectID, q.RequesterID, domain.Role.CanAdjudicate, "list conflicts"); err != nil {
		return domain.ConflictPage{}, err
	}
	q.Limit = clamp(q.Limit, 50, 1, 500)
	q.Offset = max(q.Offset, 0)

	out := domain.ConflictPage{Items: []domain.Conflict{}}
	err := s.read(ctx, func(r repo.Repo) error {
		items, total, err := r.ListConflicts(ctx, q)
		if err != nil {
			return err
		}
		out.Items = append(out.Items, items...)
		out.Total = total
		return nil
	})
	return out, err
}

// GetWork returns the work state to any project member
func (s *Svc) GetWork(ctx context.Context, projectWorkID, requesterID string) (domain.ProjectWork, error) {
	w, err := s.work(ctx, projectWorkID)
	if err != nil {
		return domain.ProjectWork{}, err
	}
	if err := s.authorize(ctx, w.ProjectID, requesterID, domain.Role.Valid, "read work"); err != nil {
		return domain.ProjectWork{}, err
	}
	return w, nil
}

// PhaseHistory lists the finalized phases of a work, oldest first
func (s *Svc) PhaseHistory(ctx context.Context, projectWorkID, requesterID string) ([]domain.PhaseOutcome, error) {
	w, err := s.GetWork(ctx, projectWorkID, requesterID)
	if err != nil {
		return nil, err
	}
	out := []domain.PhaseOutcome{}
	err = s.read(ctx, func(r repo.Repo) error {
		hist, err := r.PhaseHistory(ctx, w.ID)
		out = append(out, hist...)
		return err
	})
	return out, err
}

// GetPhaseCounts aggregates a project's works by status and phase outcome.
// An empty requesterID is a trusted internal caller and skips membership
func (s *Svc) GetPhaseCounts(ctx context.Context, projectID, requesterID string) (domain.PhaseCounts, error) {
	if _, err := s.policies.Policy(ctx, projectID); err != nil {
		return domain.PhaseCounts{}, err
	}
	if requesterID != "" {
		if err := s.authorize(ctx, projectID, requesterID, domain.Role.Valid, "read counts"); err != nil {
			return domain.PhaseCounts{}, err
		}
	}
	var out domain.PhaseCounts
	err := s.read(ctx, func(r repo.Repo) error {
		var err error
		out, err = r.PhaseCounts(ctx, projectID)
		return err
	})
	return out, err
}

// AttachWork enrolls a work in a project at the first phase; used by seeding and admin tooling
func (s *Svc) AttachWork(ctx context.Context, projectID, workID string) (domain.ProjectWork, error) {
	if projectID == "" || workID == "" {
		return domain.ProjectWork{}, perr.Validationf("project id and work id are required")
	}
	if _, err := s.policies.Policy(ctx, projectID); err != nil {
		return domain.ProjectWork{}, err
	}
	id := WorkKey(projectID, workID)
	var out domain.ProjectWork
	err := repokit.InTx(ctx, s.db, s.binder, func(r repo.Repo) error {
		now := s.now()
		if err := r.AttachWork(ctx, domain.ProjectWork{ID: id, ProjectID: projectID, WorkID: workID, UpdatedAt: now}); err != nil {
			return err
		}
		var err error
		out, err = r.GetWork(ctx, id)
		return err
	})
	return out, err
}

// WorkKey is the project work id used for a (project, work) pair
func WorkKey(projectID, workID string) string { return projectID + ":" + workID }

func (s *Svc) work(ctx context.Context, id string) (domain.ProjectWork, error) {
	if id == "" {
		return domain.ProjectWork{}, perr.WithField(perr.Validationf("project work id is required"), "project_work_id")
	}
	var w domain.ProjectWork
	err := s.read(ctx, func(r repo.Repo) error {
		var err error
		w, err = r.GetWork(ctx, id)
		return err
	})
	return w, err
}

func (s *Svc) conflict(ctx context.Context, id string) (domain.Conflict, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Conflict{}, perr.NotFoundf("conflict %s not found", id)
	}
	var c domain.Conflict
	err := s.read(ctx, func(r repo.Repo) error {
		var err error
		c, err = r.GetConflict(ctx, id)
		return err
	})
	return c, err
}

func (s *Svc) read(ctx context.Context, fn func(r repo.Repo) error) error {
	return repokit.InTx(ctx, s.db, s.binder, fn)
}

func (s *Svc) publish(ctx context.Context, facts []domain.AuditFact) {
	if len(facts) == 0 {
		return
	}
	for _, h := range s.hooks {
		h(ctx, facts)
	}
}

func cleanReasoning(raw string) (string, error) {
	out := normalize.Text(raw)
	if n := normalize.Len(out); n > domain.MaxReasoningRunes {
		return "", perr.WithField(perr.Validationf("reasoning is %d characters, limit is %d", n, domain.MaxReasoningRunes), "reasoning")
	}
	return out, nil
}

func pool(ledger []domain.ReviewerDecision) []domain.Decision {
	out := make([]domain.Decision, len(ledger))
	for i, d := range ledger {
		out[i] = d.Decision
	}
	return out
}

func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	return min(max(v, lo), hi)
}
