package service

import (
	"context"
	"time"

	"litscreen/internal/core/consensus"
	perr "litscreen/internal/platform/errors"
	ptime "litscreen/internal/platform/time"
	"litscreen/internal/services/api/screening/domain"
	"litscreen/internal/services/api/screening/repo"

	"github.com/google/uuid"
)

// closing describes who closes which phase with what
type closing struct {
	phase      domain.Phase
	decision   domain.Decision
	source     domain.Source
	actor      string
	conflictID string
}

// finalize closes a phase on a locked work, records the outcome and queues
// exactly one audit fact. The returned facts are published after commit
func (s *Svc) finalize(ctx context.Context, r repo.Repo, w domain.ProjectWork, c closing, now time.Time) (domain.ProjectWork, []domain.AuditFact, error) {
	prior, recorded, err := r.PhaseOutcome(ctx, w.ID, c.phase)
	if err != nil {
		return w, nil, err
	}
	var was domain.Decision
	if recorded {
		was = prior.Decision
	}

	t, err := consensus.Finalize(w.State(), c.phase, was, c.decision)
	if err != nil {
		if perr.IsInvariant(err) {
			if was == "" {
				was = w.FinalDecision
			}
			s.log.Error().Err(err).
				Str("project_work_id", w.ID).
				Str("phase", string(c.phase)).
				Str("recorded", string(was)).
				Str("attempted", string(c.decision)).
				Str("source", string(c.source)).
				Msg("screening: two final decisions for one phase")
		}
		return w, nil, err
	}
	if t.NoOp {
		return w, nil, nil
	}

	w.Phase, w.Status, w.FinalDecision = t.Phase, t.Status, t.FinalDecision
	w.UpdatedAt = now
	var finalizedAt time.Time
	if t.Terminal {
		finalizedAt = now
	}
	w.FinalizedAt = ptime.Ptr(finalizedAt)
	if err := r.UpdateWork(ctx, w); err != nil {
		return w, nil, err
	}

	if err := r.InsertPhaseOutcome(ctx, domain.PhaseOutcome{
		ProjectWorkID: w.ID,
		Phase:         c.phase,
		Decision:      c.decision,
		Source:        c.source,
		ActorID:       c.actor,
		ConflictID:    c.conflictID,
		DecidedAt:     now,
	}); err != nil {
		return w, nil, err
	}

	fact := domain.AuditFact{
		ID:            uuid.NewString(),
		ProjectID:     w.ProjectID,
		ProjectWorkID: w.ID,
		Phase:         c.phase,
		ActorID:       c.actor,
		Decision:      c.decision,
		Source:        c.source,
		OccurredAt:    now,
	}
	if err := r.EnqueueAudit(ctx, fact); err != nil {
		return w, nil, err
	}

	s.log.Info().
		Str("project_work_id", w.ID).
		Str("phase", string(c.phase)).
		Str("decision", string(c.decision)).
		Str("source", string(c.source)).
		Str("actor_id", c.actor).
		Bool("terminal", t.Terminal).
		Msg("screening: phase finalized")
	return w, []domain.AuditFact{fact}, nil
}
