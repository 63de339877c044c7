// Package repo provides screening persistence for Postgres and memory
package repo

import (
	"context"
	_ "embed"
	"time"

	"litscreen/internal/core/consensus"
	"litscreen/internal/services/api/screening/domain"
)

// Schema is the DDL applied by litscreen-admin migrate
//
//go:embed schema.sql
var Schema string

// Repo is the screening persistence surface used by the service layer.
// Lock and write methods are meant to run inside one transaction
type Repo interface {
	// SetLockTimeout bounds row lock waits for the rest of the transaction
	SetLockTimeout(ctx context.Context, d time.Duration) error

	AttachWork(ctx context.Context, w domain.ProjectWork) error
	GetWork(ctx context.Context, id string) (domain.ProjectWork, error)
	// LockWork reads a work and holds it exclusively until the transaction ends
	LockWork(ctx context.Context, id string) (domain.ProjectWork, error)
	UpdateWork(ctx context.Context, w domain.ProjectWork) error

	UpsertDecision(ctx context.Context, d domain.ReviewerDecision) (domain.ReviewerDecision, error)
	// ListDecisions returns the ledger page ordered by submission time then reviewer
	ListDecisions(ctx context.Context, projectWorkID string, phase domain.Phase) ([]domain.ReviewerDecision, error)

	InsertConflict(ctx context.Context, c domain.Conflict) error
	ReplaceSnapshot(ctx context.Context, conflictID string, ds []domain.ReviewerDecision, at time.Time) error
	GetConflict(ctx context.Context, id string) (domain.Conflict, error)
	// ConflictFor returns the conflict for a work and phase whatever its status
	ConflictFor(ctx context.Context, projectWorkID string, phase domain.Phase) (domain.Conflict, bool, error)
	// ResolveConflict flips PENDING to RESOLVED; a resolved row is domain.ErrAlreadyResolved
	ResolveConflict(ctx context.Context, id string, res domain.Resolution) error
	ListConflicts(ctx context.Context, q domain.ConflictQuery) ([]domain.Conflict, int, error)

	PhaseOutcome(ctx context.Context, projectWorkID string, phase domain.Phase) (domain.PhaseOutcome, bool, error)
	InsertPhaseOutcome(ctx context.Context, o domain.PhaseOutcome) error
	PhaseHistory(ctx context.Context, projectWorkID string) ([]domain.PhaseOutcome, error)

	// EnqueueAudit stores a fact in the outbox; one per work and phase
	EnqueueAudit(ctx context.Context, f domain.AuditFact) error

	PhaseCounts(ctx context.Context, projectID string) (domain.PhaseCounts, error)
}

func newCounts(projectID string) domain.PhaseCounts {
	return domain.PhaseCounts{
		ProjectID: projectID,
		Included:  map[domain.Phase]int{},
		Excluded:  map[domain.Phase]int{},
	}
}

func addStatus(c *domain.PhaseCounts, s domain.Status, n int) {
	switch s {
	case consensus.StatusPending:
		c.Pending += n
	case consensus.StatusInProgress:
		c.InProgress += n
	case consensus.StatusConflict:
		c.Conflict += n
	case consensus.StatusDecided:
		c.Decided += n
	}
}

func addOutcome(c *domain.PhaseCounts, p domain.Phase, d domain.Decision, n int) {
	switch d {
	case consensus.Include:
		c.Included[p] += n
	case consensus.Exclude:
		c.Excluded[p] += n
	case consensus.Maybe:
	}
}
