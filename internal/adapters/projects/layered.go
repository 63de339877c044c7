package projects

import (
	"context"

	"litscreen/internal/services/api/screening/domain"
)

// Provider answers both policy and membership questions
type Provider interface {
	domain.PolicyProvider
	domain.RoleProvider
}

// Layered serves projects defined in a static file and defers the rest
type Layered struct {
	front *Static
	back  Provider
}

// NewLayered puts front before back; a nil front is a pass-through
func NewLayered(front *Static, back Provider) *Layered {
	return &Layered{front: front, back: back}
}

func (l *Layered) pick(projectID string) Provider {
	if l.front != nil && (l.back == nil || l.front.Has(projectID)) {
		return l.front
	}
	return l.back
}

// Policy returns the policy from whichever layer owns the project
func (l *Layered) Policy(ctx context.Context, projectID string) (domain.Policy, error) {
	return l.pick(projectID).Policy(ctx, projectID)
}

// Role returns the role from whichever layer owns the project
func (l *Layered) Role(ctx context.Context, projectID, userID string) (domain.Role, bool, error) {
	return l.pick(projectID).Role(ctx, projectID, userID)
}
