// Package domain holds screening types independent of transport or storage
package domain

import (
	"time"

	"litscreen/internal/core/consensus"
	perr "litscreen/internal/platform/errors"
)

type (
	// Phase is a screening stage
	Phase = consensus.Phase

	// Decision is a reviewer judgement
	Decision = consensus.Decision

	// Status is the work state inside its current phase
	Status = consensus.Status

	// ConflictStatus tracks adjudication of a conflict
	ConflictStatus = consensus.ConflictStatus

	// Source says whether consensus or a resolver closed a phase
	Source = consensus.Source
)

// MaxReasoningRunes bounds normalized reasoning text
const MaxReasoningRunes = 4000

// ErrAlreadyResolved is returned for every resolve after the first
var ErrAlreadyResolved = perr.New(perr.ErrorCodeState, "conflict already resolved")

// Role is a project membership role
type Role string

const (
	// RoleOwner owns the project and may adjudicate
	RoleOwner Role = "OWNER"

	// RoleLead leads screening and may adjudicate
	RoleLead Role = "LEAD"

	// RoleReviewer screens works
	RoleReviewer Role = "REVIEWER"

	// RoleViewer reads only
	RoleViewer Role = "VIEWER"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleLead, RoleReviewer, RoleViewer:
		return true
	}
	return false
}

// CanScreen reports whether the role may submit decisions
func (r Role) CanScreen() bool {
	switch r {
	case RoleOwner, RoleLead, RoleReviewer:
		return true
	case RoleViewer:
		return false
	}
	return false
}

// CanAdjudicate reports whether the role may resolve conflicts
func (r Role) CanAdjudicate() bool {
	switch r {
	case RoleOwner, RoleLead:
		return true
	case RoleReviewer, RoleViewer:
		return false
	}
	return false
}

// Policy is the per project screening configuration
type Policy struct {
	BlindScreening    bool `json:"blind_screening"    yaml:"blind_screening"`
	RequiredReviewers int  `json:"required_reviewers" yaml:"required_reviewers"`
}

// ProjectWork is one bibliographic work inside one project
type ProjectWork struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	WorkID        string     `json:"work_id"`
	Phase         Phase      `json:"phase"`
	Status        Status     `json:"status"`
	FinalDecision Decision   `json:"final_decision,omitempty"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// State projects the fields the phase controller owns
func (w ProjectWork) State() consensus.State {
	return consensus.State{Phase: w.Phase, Status: w.Status, FinalDecision: w.FinalDecision}
}

// ReviewerDecision is one ledger row, unique per work, phase and reviewer
type ReviewerDecision struct {
	ID            string    `json:"id"`
	ProjectWorkID string    `json:"project_work_id"`
	Phase         Phase     `json:"phase"`
	ReviewerID    string    `json:"reviewer_id"`
	Decision      Decision  `json:"decision"`
	Reasoning     string    `json:"reasoning,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Resolution records an adjudication
type Resolution struct {
	ResolverID string    `json:"resolver_id"`
	Decision   Decision  `json:"decision"`
	Reasoning  string    `json:"reasoning,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Conflict is a detected disagreement for one work and phase.
// Decisions is the snapshot taken at detection and is not kept in sync
// with later ledger changes
type Conflict struct {
	ID            string             `json:"id"`
	ProjectWorkID string             `json:"project_work_id"`
	ProjectID     string             `json:"project_id"`
	Phase         Phase              `json:"phase"`
	Status        ConflictStatus     `json:"status"`
	Decisions     []ReviewerDecision `json:"decisions"`
	Resolution    *Resolution        `json:"resolution,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// PhaseOutcome is the permanent record of one finalized phase
type PhaseOutcome struct {
	ProjectWorkID string    `json:"project_work_id"`
	Phase         Phase     `json:"phase"`
	Decision      Decision  `json:"decision"`
	Source        Source    `json:"source"`
	ActorID       string    `json:"actor_id"`
	ConflictID    string    `json:"conflict_id,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
}

// AuditFact is the immutable event emitted once per phase finalization
type AuditFact struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ProjectWorkID string    `json:"project_work_id"`
	Phase         Phase     `json:"phase"`
	ActorID       string    `json:"actor_id"`
	Decision      Decision  `json:"decision"`
	Source        Source    `json:"source"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// OutboxEntry is an undelivered audit fact leased to a relay
type OutboxEntry struct {
	Fact     AuditFact
	Attempts int
}

// PhaseCounts is the reporting aggregate for one project
type PhaseCounts struct {
	ProjectID  string        `json:"project_id"`
	Pending    int           `json:"pending"`
	InProgress int           `json:"in_progress"`
	Conflict   int           `json:"conflict"`
	Decided    int           `json:"decided"`
	Included   map[Phase]int `json:"included_by_phase"`
	Excluded   map[Phase]int `json:"excluded_by_phase"`
}
