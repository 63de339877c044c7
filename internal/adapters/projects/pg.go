// Package projects resolves screening policies and memberships
package projects

import (
	"context"
	"errors"

	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/platform/store"
	"litscreen/internal/services/api/screening/domain"
)

// PG reads projects and project_members
type PG struct {
	q repokit.Queryer
}

// NewPG returns a provider over q
func NewPG(q repokit.Queryer) *PG { return &PG{q: repokit.RequireQueryer(q)} }

// Policy returns the project's screening policy
func (p *PG) Policy(ctx context.Context, projectID string) (domain.Policy, error) {
	pol, err := store.One(ctx, p.q, func(row store.Row) (domain.Policy, error) {
		var v domain.Policy
		err := row.Scan(&v.BlindScreening, &v.RequiredReviewers)
		return v, err
	}, `SELECT blind_screening, required_reviewers FROM projects WHERE id = $1`, projectID)
	if errors.Is(err, perr.ErrNotFound) {
		return domain.Policy{}, perr.NotFoundf("project %s not found", projectID)
	}
	if err != nil {
		return domain.Policy{}, perr.FromPostgres(err, "read project policy")
	}
	return pol, nil
}

// Role returns the member's role; ok is false when userID is not a member
func (p *PG) Role(ctx context.Context, projectID, userID string) (domain.Role, bool, error) {
	role, err := store.One(ctx, p.q, func(row store.Row) (domain.Role, error) {
		var r string
		err := row.Scan(&r)
		return domain.Role(r), err
	}, `SELECT role FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if errors.Is(err, perr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, perr.FromPostgres(err, "read project member")
	}
	return role, true, nil
}

// Apply upserts projects and replaces their member lists in one transaction
func Apply(ctx context.Context, db repokit.TxRunner, projects []Project) error {
	return db.Tx(ctx, func(q repokit.Queryer) error {
		for _, p := range projects {
			if _, err := q.Exec(ctx, `
				INSERT INTO projects (id, name, blind_screening, required_reviewers)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE
				   SET name = EXCLUDED.name,
				       blind_screening = EXCLUDED.blind_screening,
				       required_reviewers = EXCLUDED.required_reviewers`,
				p.ID, p.Name, p.Policy.BlindScreening, p.Policy.RequiredReviewers); err != nil {
				return perr.FromPostgres(err, "upsert project "+p.ID)
			}
			if _, err := q.Exec(ctx, `DELETE FROM project_members WHERE project_id = $1`, p.ID); err != nil {
				return perr.FromPostgres(err, "clear members of "+p.ID)
			}
			for user, role := range p.Members {
				if _, err := q.Exec(ctx,
					`INSERT INTO project_members (project_id, user_id, role) VALUES ($1, $2, $3)`,
					p.ID, user, string(role)); err != nil {
					return perr.FromPostgres(err, "insert member "+user)
				}
			}
		}
		return nil
	})
}
