package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"litscreen/internal/core/consensus"
	"litscreen/internal/core/keylock"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/testkit"
	"litscreen/internal/services/api/screening/domain"
	"litscreen/internal/services/api/screening/repo"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type projects struct {
	policy  domain.Policy
	members map[string]domain.Role
}

func (p projects) Policy(_ context.Context, projectID string) (domain.Policy, error) {
	if projectID != "p1" {
		return domain.Policy{}, perr.NotFoundf("project %s not found", projectID)
	}
	return p.policy, nil
}

func (p projects) Role(_ context.Context, projectID, userID string) (domain.Role, bool, error) {
	if projectID != "p1" {
		return "", false, nil
	}
	r, ok := p.members[userID]
	return r, ok, nil
}

type harness struct {
	svc   *Svc
	mem   *repo.Memory
	locks *keylock.Locks

	mu    sync.Mutex
	facts []domain.AuditFact
}

func (h *harness) published() []domain.AuditFact {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.AuditFact(nil), h.facts...)
}

func newHarness(t *testing.T, pol domain.Policy, tweak ...func(*Options)) *harness {
	t.Helper()
	h := &harness{mem: repo.NewMemory(), locks: keylock.New()}
	opt := Options{
		Policies: projects{policy: pol, members: map[string]domain.Role{
			"owner": domain.RoleOwner,
			"lead":  domain.RoleLead,
			"r1":    domain.RoleReviewer,
			"r2":    domain.RoleReviewer,
			"r3":    domain.RoleReviewer,
			"r4":    domain.RoleReviewer,
			"r5":    domain.RoleReviewer,
			"view":  domain.RoleViewer,
		}},
		LockTimeout: time.Second,
		RetryMax:    2,
		RetryBase:   time.Millisecond,
		Locks:       h.locks,
		Now:         func() time.Time { return t0 },
		Hooks: []domain.FactHook{func(_ context.Context, fs []domain.AuditFact) {
			h.mu.Lock()
			h.facts = append(h.facts, fs...)
			h.mu.Unlock()
		}},
	}
	opt.Roles = opt.Policies.(projects)
	for _, f := range tweak {
		f(&opt)
	}
	h.svc = New(h.mem, repo.NewMemoryBinder(), opt)
	return h
}

func (h *harness) attach(t *testing.T, workID string) string {
	t.Helper()
	w, err := h.svc.AttachWork(context.Background(), "p1", workID)
	require.NoError(t, err)
	return w.ID
}

func (h *harness) submit(pw string, phase domain.Phase, reviewer string, d domain.Decision) (domain.SubmitResult, error) {
	return h.svc.SubmitDecision(context.Background(), domain.SubmitInput{
		ProjectWorkID: pw, Phase: phase, ReviewerID: reviewer, Decision: d,
	})
}

func (h *harness) conflicts(t *testing.T) []domain.Conflict {
	t.Helper()
	page, err := h.svc.ListConflicts(context.Background(), domain.ConflictQuery{ProjectID: "p1", RequesterID: "lead", Limit: 100})
	require.NoError(t, err)
	return page.Items
}

var twoBlind = domain.Policy{BlindScreening: true, RequiredReviewers: 2}

const (
	ta = consensus.PhaseTitleAbstract
	ft = consensus.PhaseFullText
)

func TestSubmit_FirstDecisionStartsScreening(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")

	res, err := h.submit(pw, ta, "r1", consensus.Include)
	require.NoError(t, err)
	assert.Equal(t, consensus.NotReady, res.Outcome)
	assert.Equal(t, consensus.StatusInProgress, res.Work.Status)
	assert.Equal(t, "r1", res.Decision.ReviewerID)
	assert.Empty(t, h.published())
}

func TestSubmit_Agreement(t *testing.T) {
	t.Run("exclude ends the journey", func(t *testing.T) {
		h := newHarness(t, twoBlind)
		pw := h.attach(t, "w1")

		_, err := h.submit(pw, ta, "r1", consensus.Exclude)
		require.NoError(t, err)
		res, err := h.submit(pw, ta, "r2", consensus.Exclude)
		require.NoError(t, err)

		assert.Equal(t, consensus.Consensus, res.Outcome)
		assert.Equal(t, consensus.StatusDecided, res.Work.Status)
		assert.Equal(t, consensus.Exclude, res.Work.FinalDecision)
		assert.Equal(t, ta, res.Work.Phase)
		require.NotNil(t, res.Work.FinalizedAt)
		assert.Empty(t, h.conflicts(t))

		facts := h.published()
		require.Len(t, facts, 1)
		assert.Equal(t, consensus.SourceConsensus, facts[0].Source)
		assert.Equal(t, "r2", facts[0].ActorID)

		_, err = h.submit(pw, ft, "r1", consensus.Include)
		assert.True(t, perr.IsCode(err, perr.ErrorCodeState))
	})

	t.Run("include advances then decides", func(t *testing.T) {
		h := newHarness(t, twoBlind)
		pw := h.attach(t, "w1")

		_, _ = h.submit(pw, ta, "r1", consensus.Include)
		res, err := h.submit(pw, ta, "r2", consensus.Include)
		require.NoError(t, err)
		assert.Equal(t, ft, res.Work.Phase)
		assert.Equal(t, consensus.StatusPending, res.Work.Status)
		assert.Empty(t, res.Work.FinalDecision)
		assert.Nil(t, res.Work.FinalizedAt)

		_, _ = h.submit(pw, ft, "r3", consensus.Include)
		res, err = h.submit(pw, ft, "r1", consensus.Include)
		require.NoError(t, err)
		assert.Equal(t, consensus.StatusDecided, res.Work.Status)
		assert.Equal(t, consensus.Include, res.Work.FinalDecision)
		assert.Equal(t, ft, res.Work.Phase)

		hist, err := h.svc.PhaseHistory(context.Background(), pw, "view")
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, ta, hist[0].Phase)
		assert.Equal(t, ft, hist[1].Phase)
		assert.Len(t, h.published(), 2)
		assert.Empty(t, h.conflicts(t))
	})
}

func TestSubmit_Disagreement(t *testing.T) {
	cases := []struct {
		name   string
		d1, d2 domain.Decision
	}{
		{"include vs exclude", consensus.Include, consensus.Exclude},
		{"include vs maybe", consensus.Include, consensus.Maybe},
		{"exclude vs maybe", consensus.Exclude, consensus.Maybe},
		{"all maybe", consensus.Maybe, consensus.Maybe},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, twoBlind)
			pw := h.attach(t, "w1")

			_, err := h.submit(pw, ta, "r1", tc.d1)
			require.NoError(t, err)
			res, err := h.submit(pw, ta, "r2", tc.d2)
			require.NoError(t, err)

			assert.Equal(t, consensus.Conflict, res.Outcome)
			assert.Equal(t, consensus.StatusConflict, res.Work.Status)
			assert.Empty(t, res.Work.FinalDecision)
			require.NotEmpty(t, res.ConflictID)

			cs := h.conflicts(t)
			require.Len(t, cs, 1)
			assert.Equal(t, res.ConflictID, cs[0].ID)
			assert.Equal(t, consensus.ConflictPending, cs[0].Status)
			require.Len(t, cs[0].Decisions, 2)
			assert.ElementsMatch(t, []domain.Decision{tc.d1, tc.d2},
				[]domain.Decision{cs[0].Decisions[0].Decision, cs[0].Decisions[1].Decision})
			assert.Empty(t, h.published())
		})
	}
}

func TestSubmit_ResubmissionRules(t *testing.T) {
	h := newHarness(t, domain.Policy{RequiredReviewers: 3})
	pw := h.attach(t, "w1")

	_, err := h.submit(pw, ta, "r1", consensus.Maybe)
	require.NoError(t, err)
	_, err = h.submit(pw, ta, "r1", consensus.Include)
	require.NoError(t, err)

	list, err := h.svc.ListDecisions(context.Background(), domain.ListDecisionsQuery{ProjectWorkID: pw, RequesterID: "r1"})
	require.NoError(t, err)
	require.Len(t, list.Decisions, 1)
	assert.Equal(t, consensus.Include, list.Decisions[0].Decision)

	_, _ = h.submit(pw, ta, "r2", consensus.Include)
	res, err := h.submit(pw, ta, "r3", consensus.Exclude)
	require.NoError(t, err)
	require.Equal(t, consensus.Conflict, res.Outcome)

	_, err = h.submit(pw, ta, "r3", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeState), "resubmission during conflict: %v", err)
}

func TestSubmit_ValidationAndState(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")
	ctx := context.Background()

	_, err := h.submit(pw, "ABSTRACT_ONLY", "r1", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	_, err = h.submit(pw, ta, "r1", "PROBABLY")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	_, err = h.submit(pw, ft, "r1", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeState), "future phase: %v", err)

	_, err = h.submit("p1:missing", ta, "r1", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

	_, err = h.svc.SubmitDecision(ctx, domain.SubmitInput{
		ProjectWorkID: pw, Phase: ta, ReviewerID: "r1", Decision: consensus.Include,
		Reasoning: strings.Repeat("x", domain.MaxReasoningRunes+1),
	})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	res, err := h.svc.SubmitDecision(ctx, domain.SubmitInput{
		ProjectWorkID: pw, Phase: ta, ReviewerID: "r1", Decision: consensus.Include,
		Reasoning: "  population\u200b matches \r\n\r\n\r\n\r\n criteria\x00 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "population matches\n\ncriteria", res.Decision.Reasoning)
}

func TestAuthorization(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")
	ctx := context.Background()

	_, err := h.submit(pw, ta, "", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnauthorized))

	_, err = h.submit(pw, ta, "stranger", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, err = h.submit(pw, ta, "view", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, _ = h.submit(pw, ta, "r1", consensus.Include)
	res, err := h.submit(pw, ta, "r2", consensus.Exclude)
	require.NoError(t, err)

	_, err = h.svc.ResolveConflict(ctx, domain.ResolveInput{ConflictID: res.ConflictID, ResolverID: "r1", Decision: consensus.Include})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, err = h.svc.PreviewConflict(ctx, res.ConflictID, "r2")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, err = h.svc.ListConflicts(ctx, domain.ConflictQuery{ProjectID: "p1", RequesterID: "r1"})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, err = h.svc.GetWork(ctx, pw, "stranger")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))

	_, err = h.svc.GetPhaseCounts(ctx, "nope", "")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

	w, err := h.svc.GetWork(ctx, pw, "view")
	require.NoError(t, err)
	assert.Equal(t, consensus.StatusConflict, w.Status)
}

func TestResolve_OneShot(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")
	ctx := context.Background()

	_, _ = h.submit(pw, ta, "r1", consensus.Include)
	res, err := h.submit(pw, ta, "r2", consensus.Maybe)
	require.NoError(t, err)

	_, err = h.svc.ResolveConflict(ctx, domain.ResolveInput{ConflictID: res.ConflictID, ResolverID: "lead", Decision: consensus.Maybe})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	out, err := h.svc.ResolveConflict(ctx, domain.ResolveInput{ConflictID: res.ConflictID, ResolverID: "owner", Decision: consensus.Exclude})
	require.NoError(t, err)
	assert.Equal(t, consensus.ConflictResolved, out.Conflict.Status)
	assert.Equal(t, consensus.StatusDecided, out.Work.Status)
	assert.Equal(t, consensus.Exclude, out.Work.FinalDecision)

	_, err = h.svc.ResolveConflict(ctx, domain.ResolveInput{ConflictID: res.ConflictID, ResolverID: "lead", Decision: consensus.Include})
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	w, err := h.svc.GetWork(ctx, pw, "lead")
	require.NoError(t, err)
	assert.Equal(t, consensus.Exclude, w.FinalDecision)

	_, err = h.svc.ResolveConflict(ctx, domain.ResolveInput{ConflictID: "not-a-uuid", ResolverID: "lead", Decision: consensus.Include})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

// project needs two reviewers and is blinded; W at TITLE_ABSTRACT goes
// INCLUDE / EXCLUDE, then the lead includes it
func TestScenario_AdjudicatedInclude(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "W")
	ctx := context.Background()

	_, err := h.submit(pw, ta, "r1", consensus.Include)
	require.NoError(t, err)
	res, err := h.submit(pw, ta, "r2", consensus.Exclude)
	require.NoError(t, err)
	require.Equal(t, consensus.Conflict, res.Outcome)
	assert.Equal(t, consensus.StatusConflict, res.Work.Status)
	assert.Empty(t, res.Work.FinalDecision)

	preview, err := h.svc.PreviewConflict(ctx, res.ConflictID, "lead")
	require.NoError(t, err)
	assert.Len(t, preview.Ledger, 2)

	out, err := h.svc.ResolveConflict(ctx, domain.ResolveInput{
		ConflictID: res.ConflictID, ResolverID: "lead", Decision: consensus.Include, Reasoning: "Relevant to topic",
	})
	require.NoError(t, err)
	assert.Equal(t, consensus.ConflictResolved, out.Conflict.Status)
	require.NotNil(t, out.Conflict.Resolution)
	assert.Equal(t, "Relevant to topic", out.Conflict.Resolution.Reasoning)
	assert.Equal(t, ft, out.Work.Phase)
	assert.Equal(t, consensus.StatusPending, out.Work.Status)

	facts := h.published()
	require.Len(t, facts, 1)
	assert.Equal(t, consensus.SourceAdjudication, facts[0].Source)
	assert.Equal(t, "lead", facts[0].ActorID)
	assert.Equal(t, ta, facts[0].Phase)

	queued, err := h.mem.Lease(ctx, "test", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, facts[0], queued[0].Fact)

	hist, err := h.svc.PhaseHistory(ctx, pw, "r1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, res.ConflictID, hist[0].ConflictID)
}

func TestListDecisions_BlindVisibility(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")
	ctx := context.Background()
	list := func(who string) domain.DecisionList {
		t.Helper()
		out, err := h.svc.ListDecisions(ctx, domain.ListDecisionsQuery{ProjectWorkID: pw, Phase: ta, RequesterID: who})
		require.NoError(t, err)
		return out
	}

	_, err := h.submit(pw, ta, "r1", consensus.Include)
	require.NoError(t, err)

	blind := list("r2")
	assert.True(t, blind.Hidden)
	assert.Empty(t, blind.Decisions)
	assert.True(t, list("view").Hidden)

	own := list("r1")
	assert.False(t, own.Hidden)
	assert.Len(t, own.Decisions, 1)

	_, err = h.submit(pw, ta, "r2", consensus.Exclude)
	require.NoError(t, err)

	// a conflict opens the ledger to every member
	after := list("view")
	assert.False(t, after.Hidden)
	assert.Len(t, after.Decisions, 2)
}

func TestListDecisions_OpenPolicyAndClosedPhase(t *testing.T) {
	h := newHarness(t, domain.Policy{BlindScreening: false, RequiredReviewers: 2})
	pw := h.attach(t, "w1")
	ctx := context.Background()

	_, _ = h.submit(pw, ta, "r1", consensus.Include)
	out, err := h.svc.ListDecisions(ctx, domain.ListDecisionsQuery{ProjectWorkID: pw, RequesterID: "r2"})
	require.NoError(t, err)
	assert.False(t, out.Hidden)
	assert.Len(t, out.Decisions, 1)

	h2 := newHarness(t, twoBlind)
	pw2 := h2.attach(t, "w2")
	_, _ = h2.submit(pw2, ta, "r1", consensus.Include)
	_, _ = h2.submit(pw2, ta, "r2", consensus.Include)
	// finalizing by consensus does not unblind a member who never submitted
	closed, err := h2.svc.ListDecisions(ctx, domain.ListDecisionsQuery{ProjectWorkID: pw2, Phase: ta, RequesterID: "r3"})
	require.NoError(t, err)
	assert.True(t, closed.Hidden)
	assert.Empty(t, closed.Decisions)

	voter, err := h2.svc.ListDecisions(ctx, domain.ListDecisionsQuery{ProjectWorkID: pw2, Phase: ta, RequesterID: "r1"})
	require.NoError(t, err)
	assert.False(t, voter.Hidden)
	assert.Len(t, voter.Decisions, 2)

	fresh, err := h2.svc.ListDecisions(ctx, domain.ListDecisionsQuery{ProjectWorkID: pw2, RequesterID: "r3"})
	require.NoError(t, err)
	assert.Equal(t, ft, fresh.Phase)
	assert.Empty(t, fresh.Decisions)
}

func TestRace_ConcurrentSubmissions(t *testing.T) {
	for _, agree := range []bool{true, false} {
		name := "conflict"
		if agree {
			name = "consensus"
		}
		t.Run(name, func(t *testing.T) {
			for round := 0; round < 20; round++ {
				h := newHarness(t, domain.Policy{BlindScreening: true, RequiredReviewers: 3})
				pw := h.attach(t, "w1")
				reviewers := []string{"r1", "r2", "r3"}

				errs := testkit.Race(len(reviewers), func(i int) error {
					d := consensus.Exclude
					if !agree && i == 0 {
						d = consensus.Include
					}
					_, err := h.submit(pw, ta, reviewers[i], d)
					return err
				})
				for _, err := range errs {
					require.NoError(t, err)
				}

				w, err := h.svc.GetWork(context.Background(), pw, "lead")
				require.NoError(t, err)
				if agree {
					assert.Equal(t, consensus.StatusDecided, w.Status)
					assert.Len(t, h.published(), 1)
					assert.Empty(t, h.conflicts(t))
				} else {
					assert.Equal(t, consensus.StatusConflict, w.Status)
					assert.Empty(t, h.published())
					cs := h.conflicts(t)
					require.Len(t, cs, 1)
					assert.Len(t, cs[0].Decisions, 3)
				}
			}
		})
	}
}

func TestRace_ConcurrentResolves(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")
	_, _ = h.submit(pw, ta, "r1", consensus.Include)
	res, err := h.submit(pw, ta, "r2", consensus.Exclude)
	require.NoError(t, err)

	errs := testkit.Race(6, func(i int) error {
		d := consensus.Include
		if i%2 == 1 {
			d = consensus.Exclude
		}
		_, err := h.svc.ResolveConflict(context.Background(), domain.ResolveInput{
			ConflictID: res.ConflictID, ResolverID: "lead", Decision: d,
		})
		return err
	})

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, h.published(), 1)
}

func TestContention_TimesOut(t *testing.T) {
	h := newHarness(t, twoBlind, func(o *Options) {
		o.LockTimeout = 20 * time.Millisecond
		o.RetryMax = 1
	})
	pw := h.attach(t, "w1")

	release, err := h.locks.Acquire(context.Background(), lockKey(pw, ta))
	require.NoError(t, err)
	defer release()

	_, err = h.submit(pw, ta, "r1", consensus.Include)
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeContention), "got %v", err)
	assert.True(t, perr.Retryable(err))

	// a different phase key is never blocked
	_, err = h.submit(pw, ft, "r1", consensus.Include)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeState))
}

func TestContention_CancelledCaller(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")

	release, err := h.locks.Acquire(context.Background(), lockKey(pw, ta))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.svc.SubmitDecision(ctx, domain.SubmitInput{ProjectWorkID: pw, Phase: ta, ReviewerID: "r1", Decision: consensus.Include})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContention_CallerDeadline(t *testing.T) {
	h := newHarness(t, twoBlind)
	pw := h.attach(t, "w1")

	release, err := h.locks.Acquire(context.Background(), lockKey(pw, ta))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = h.svc.SubmitDecision(ctx, domain.SubmitInput{ProjectWorkID: pw, Phase: ta, ReviewerID: "r1", Decision: consensus.Include})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeContention), "got %v", err)
	assert.True(t, perr.Retryable(err))
	assert.Equal(t, http.StatusServiceUnavailable, perr.HTTPStatus(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFinalize_InvariantLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := newHarness(t, twoBlind, func(o *Options) { o.Log = &log })
	pw := h.attach(t, "w1")
	ctx := context.Background()

	_, err := h.submit(pw, ta, "r1", consensus.Exclude)
	require.NoError(t, err)
	_, err = h.submit(pw, ta, "r2", consensus.Exclude)
	require.NoError(t, err)
	buf.Reset()

	err = h.svc.exclusive(ctx, lockKey(pw, ta), func(r repo.Repo) error {
		w, err := r.LockWork(ctx, pw)
		if err != nil {
			return err
		}
		_, _, err = h.svc.finalize(ctx, r, w, closing{
			phase: ta, decision: consensus.Include, source: consensus.SourceAdjudication, actor: "lead",
		}, t0)
		return err
	})
	require.Error(t, err)
	assert.True(t, perr.IsInvariant(err))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"level":"error"`), out)
	assert.Contains(t, out, "two final decisions for one phase")
	assert.Contains(t, out, `"attempted":"INCLUDE"`)
	assert.Contains(t, out, `"recorded":"EXCLUDE"`)
}

func TestGetPhaseCounts(t *testing.T) {
	h := newHarness(t, twoBlind)
	ctx := context.Background()
	a, b, c := h.attach(t, "a"), h.attach(t, "b"), h.attach(t, "c")
	_ = h.attach(t, "d")

	_, _ = h.submit(a, ta, "r1", consensus.Exclude)
	_, _ = h.submit(a, ta, "r2", consensus.Exclude)
	_, _ = h.submit(b, ta, "r1", consensus.Include)
	_, _ = h.submit(b, ta, "r2", consensus.Include)
	_, _ = h.submit(c, ta, "r1", consensus.Include)

	counts, err := h.svc.GetPhaseCounts(ctx, "p1", "view")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Pending)
	assert.Equal(t, 1, counts.InProgress)
	assert.Equal(t, 1, counts.Decided)
	assert.Equal(t, 1, counts.Included[ta])
	assert.Equal(t, 1, counts.Excluded[ta])

	_, err = h.svc.GetPhaseCounts(ctx, "p1", "stranger")
	assert.True(t, perr.IsCode(err, perr.ErrorCodeForbidden))
}

func TestListConflicts_FiltersAndPages(t *testing.T) {
	h := newHarness(t, twoBlind)
	ctx := context.Background()
	for _, w := range []string{"a", "b", "c"} {
		pw := h.attach(t, w)
		_, _ = h.submit(pw, ta, "r1", consensus.Include)
		_, err := h.submit(pw, ta, "r2", consensus.Exclude)
		require.NoError(t, err)
	}

	page, err := h.svc.ListConflicts(ctx, domain.ConflictQuery{ProjectID: "p1", RequesterID: "owner", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)

	page, err = h.svc.ListConflicts(ctx, domain.ConflictQuery{ProjectID: "p1", RequesterID: "owner", Phase: ft})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = h.svc.ListConflicts(ctx, domain.ConflictQuery{ProjectID: "p1", RequesterID: "owner", Status: "OPEN"})
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
}
