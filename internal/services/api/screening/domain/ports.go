package domain

import "context"

// ServicePort is the interface implemented by the screening service
type ServicePort interface {
	SubmitDecision(ctx context.Context, in SubmitInput) (SubmitResult, error)
	ListDecisions(ctx context.Context, q ListDecisionsQuery) (DecisionList, error)
	ResolveConflict(ctx context.Context, in ResolveInput) (ResolveResult, error)
	PreviewConflict(ctx context.Context, conflictID, resolverID string) (ConflictPreview, error)
	ListConflicts(ctx context.Context, q ConflictQuery) (ConflictPage, error)
	GetWork(ctx context.Context, projectWorkID, requesterID string) (ProjectWork, error)
	PhaseHistory(ctx context.Context, projectWorkID, requesterID string) ([]PhaseOutcome, error)
	GetPhaseCounts(ctx context.Context, projectID, requesterID string) (PhaseCounts, error)
}

// PolicyProvider resolves a project's screening policy
// unknown projects are perr.ErrorCodeNotFound
type PolicyProvider interface {
	Policy(ctx context.Context, projectID string) (Policy, error)
}

// RoleProvider resolves a user's role in a project; ok is false for non members
type RoleProvider interface {
	Role(ctx context.Context, projectID, userID string) (role Role, ok bool, err error)
}

// FactHook receives audit facts after their transaction committed
type FactHook func(ctx context.Context, facts []AuditFact)
