package service

import (
	"context"
	"strings"

	perr "litscreen/internal/platform/errors"
	"litscreen/internal/services/api/screening/domain"
)

// authorize checks membership and the role tier needed for action
func (s *Svc) authorize(ctx context.Context, projectID, userID string, allowed func(domain.Role) bool, action string) error {
	if strings.TrimSpace(userID) == "" {
		return perr.Unauthorizedf("missing identity")
	}
	role, ok, err := s.roles.Role(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return perr.Forbiddenf("%s is not a member of project %s", userID, projectID)
	}
	if !allowed(role) {
		return perr.Forbiddenf("role %s may not %s", role, action)
	}
	return nil
}
