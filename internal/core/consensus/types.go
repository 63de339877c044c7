// Package consensus holds the storage free rules of screening: the closed
// enumerations, consensus evaluation over a decision pool and the phase
// state machine that finalization drives
package consensus

// Phase is an ordered screening stage
type Phase string

const (
	PhaseTitleAbstract Phase = "TITLE_ABSTRACT"
	PhaseFullText      Phase = "FULL_TEXT"
)

// Phases lists every phase in screening order
var Phases = []Phase{PhaseTitleAbstract, PhaseFullText}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	switch p {
	case PhaseTitleAbstract, PhaseFullText:
		return true
	}
	return false
}

// Next returns the phase that follows p; ok is false at the last phase
func (p Phase) Next() (next Phase, ok bool) {
	switch p {
	case PhaseTitleAbstract:
		return PhaseFullText, true
	case PhaseFullText:
		return "", false
	}
	return "", false
}

// Decision is a reviewer judgement
type Decision string

const (
	Include Decision = "INCLUDE"
	Exclude Decision = "EXCLUDE"
	Maybe   Decision = "MAYBE"
)

// Valid reports whether d is a known reviewer decision
func (d Decision) Valid() bool {
	switch d {
	case Include, Exclude, Maybe:
		return true
	}
	return false
}

// Final reports whether d can close a phase; MAYBE never can
func (d Decision) Final() bool {
	switch d {
	case Include, Exclude:
		return true
	case Maybe:
		return false
	}
	return false
}

// Status is where a work stands inside its current phase
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusConflict   Status = "CONFLICT"
	StatusDecided    Status = "DECIDED"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusConflict, StatusDecided:
		return true
	}
	return false
}

// Open reports whether reviewers may still submit or replace decisions
func (s Status) Open() bool {
	switch s {
	case StatusPending, StatusInProgress:
		return true
	case StatusConflict, StatusDecided:
		return false
	}
	return false
}

// ConflictStatus tracks adjudication
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "PENDING"
	ConflictResolved ConflictStatus = "RESOLVED"
)

// Valid reports whether s is a known conflict status
func (s ConflictStatus) Valid() bool {
	switch s {
	case ConflictPending, ConflictResolved:
		return true
	}
	return false
}

// Source says who closed a phase
type Source string

const (
	SourceConsensus    Source = "consensus"
	SourceAdjudication Source = "adjudication"
)
