package domain

import "litscreen/internal/core/consensus"

// SubmitInput records or replaces a reviewer's decision for the current phase
type SubmitInput struct {
	ProjectWorkID string   `json:"-"`
	ReviewerID    string   `json:"-"`
	Phase         Phase    `json:"phase"     validate:"required,oneof=TITLE_ABSTRACT FULL_TEXT" example:"TITLE_ABSTRACT"`
	Decision      Decision `json:"decision"  validate:"required,oneof=INCLUDE EXCLUDE MAYBE"     example:"INCLUDE"`
	Reasoning     string   `json:"reasoning" validate:"max=16000"                               example:"Population matches"`
}

// SubmitResult reports the evaluation that followed the write
type SubmitResult struct {
	Outcome    consensus.Kind   `json:"outcome"`
	Decision   ReviewerDecision `json:"decision"`
	Work       ProjectWork      `json:"work"`
	ConflictID string           `json:"conflict_id,omitempty"`
}

// ListDecisionsQuery reads the ledger page for one work and phase
// an empty Phase means the work's current phase
type ListDecisionsQuery struct {
	ProjectWorkID string
	Phase         Phase
	RequesterID   string
}

// DecisionList is the blind aware ledger view
// Hidden is set when peer decisions were withheld from the requester
type DecisionList struct {
	ProjectWorkID string             `json:"project_work_id"`
	Phase         Phase              `json:"phase"`
	Hidden        bool               `json:"hidden"`
	Decisions     []ReviewerDecision `json:"decisions"`
}

// ResolveInput adjudicates a pending conflict
type ResolveInput struct {
	ConflictID string   `json:"-"`
	ResolverID string   `json:"-"`
	Decision   Decision `json:"decision"  validate:"required,oneof=INCLUDE EXCLUDE" example:"INCLUDE"`
	Reasoning  string   `json:"reasoning" validate:"max=16000"                   example:"Relevant to topic"`
}

// ResolveResult carries the resolved conflict and the finalized work
type ResolveResult struct {
	Conflict Conflict    `json:"conflict"`
	Work     ProjectWork `json:"work"`
}

// ConflictPreview is the resolver's unblinded view
type ConflictPreview struct {
	Conflict Conflict           `json:"conflict"`
	Work     ProjectWork        `json:"work"`
	Ledger   []ReviewerDecision `json:"ledger"`
}

// ConflictQuery filters a project's conflicts; zero filters match all
type ConflictQuery struct {
	ProjectID   string
	RequesterID string
	Status      ConflictStatus
	Phase       Phase
	Limit       int
	Offset      int
}

// ConflictPage is one page of conflicts with the unpaged total
type ConflictPage struct {
	Items []Conflict `json:"items"`
	Total int        `json:"total"`
}
