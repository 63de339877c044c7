package consensus

import (
	perr "litscreen/internal/platform/errors"
)

// State is the part of a work the phase controller owns
type State struct {
	Phase         Phase
	Status        Status
	FinalDecision Decision
}

// Transition is the state a finalization leads to
type Transition struct {
	State

	// NoOp is set when the phase was already closed with the same decision
	NoOp bool
	// Advanced is set when INCLUDE opened the next phase
	Advanced bool
	// Terminal is set when the work's journey is over
	Terminal bool
}

// Admit checks a submission against the work state
func Admit(cur State, phase Phase) error {
	if !phase.Valid() {
		return perr.Validationf("unknown phase %q", phase)
	}
	if phase != cur.Phase {
		return perr.Statef("work is in phase %s, not %s", cur.Phase, phase)
	}
	switch cur.Status {
	case StatusPending, StatusInProgress:
		return nil
	case StatusConflict:
		return perr.Statef("decisions are locked while a conflict awaits adjudication")
	case StatusDecided:
		return perr.Statef("phase %s is already decided", phase)
	}
	return perr.Invariantf("unknown work status %q", cur.Status)
}

// Started returns the status after a decision lands on an open work
func Started(s Status) Status {
	if s == StatusPending {
		return StatusInProgress
	}
	return s
}

// Finalize closes phase at with decision d.
// prior is the decision already recorded for that phase, or "" when none is.
// Closing twice with the same decision is a NoOp; closing twice with
// different decisions is an invariant violation and is never reconciled
func Finalize(cur State, at Phase, prior Decision, d Decision) (Transition, error) {
	if !d.Final() {
		return Transition{}, perr.Validationf("%q cannot finalize a phase", d)
	}
	if prior != "" {
		if prior == d {
			return Transition{State: cur, NoOp: true}, nil
		}
		return Transition{}, perr.Invariantf("phase %s already finalized as %s, refusing %s", at, prior, d)
	}
	if at != cur.Phase {
		return Transition{}, perr.Statef("work is in phase %s, not %s", cur.Phase, at)
	}

	switch cur.Status {
	case StatusDecided:
		if cur.FinalDecision == d {
			return Transition{State: cur, NoOp: true}, nil
		}
		return Transition{}, perr.Invariantf("phase %s already decided as %s, refusing %s", at, cur.FinalDecision, d)
	case StatusPending, StatusInProgress, StatusConflict:
	default:
		return Transition{}, perr.Invariantf("unknown work status %q", cur.Status)
	}

	switch d {
	case Exclude:
		return Transition{State: State{Phase: at, Status: StatusDecided, FinalDecision: Exclude}, Terminal: true}, nil
	case Include:
		if next, ok := at.Next(); ok {
			return Transition{State: State{Phase: next, Status: StatusPending}, Advanced: true}, nil
		}
		return Transition{State: State{Phase: at, Status: StatusDecided, FinalDecision: Include}, Terminal: true}, nil
	case Maybe:
	}
	return Transition{}, perr.Invariantf("unhandled decision %q", d)
}
