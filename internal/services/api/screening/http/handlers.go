// Package http provides http transport for screening
package http

import (
	stdhttp "net/http"

	"litscreen/internal/modkit/httpkit"
	"litscreen/internal/services/api/screening/domain"
	svc "litscreen/internal/services/api/screening/service"
)

// Register mounts the screening routes behind bearer auth
func Register(r httpkit.Router, s svc.Service, auth httpkit.AuthPort) {
	h := &handlers{svc: s}
	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.SubmitInput](pr, "/works/{workID}/decisions", h.submit)
		httpkit.Get(pr, "/works/{workID}/decisions", h.decisions)
		httpkit.Get(pr, "/works/{workID}", h.work)
		httpkit.Get(pr, "/works/{workID}/history", h.history)
		httpkit.Get(pr, "/conflicts/{conflictID}", h.preview)
		httpkit.PostJSON[domain.ResolveInput](pr, "/conflicts/{conflictID}/resolve", h.resolve)
		httpkit.Get(pr, "/projects/{projectID}/conflicts", h.conflicts)
		httpkit.Get(pr, "/projects/{projectID}/counts", h.counts)
	})
}

type handlers struct{ svc svc.Service }

// @Summary Submit a screening decision
// @Tags screening
// @Accept json
// @Produce json
// @Security bearer
// @Param workID path string true "Project work id"
// @Param payload body domain.SubmitInput true "Decision"
// @Success 200 {object} domain.SubmitResult "evaluated"
// @Failure 409 {object} httpkit.Envelope "phase locked or wrong phase"
// @Failure 503 {object} httpkit.Envelope "contended, retry"
// @Router /screening/works/{workID}/decisions [post]
func (h *handlers) submit(r *stdhttp.Request, in domain.SubmitInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if in.ProjectWorkID, err = httpkit.Param(r, "workID"); err != nil {
		return nil, err
	}
	in.ReviewerID = uid
	return h.svc.SubmitDecision(r.Context(), in)
}

// @Summary List decisions, blind aware
// @Tags screening
// @Produce json
// @Security bearer
// @Param workID path string true "Project work id"
// @Param phase query string false "Phase, defaults to the current one"
// @Success 200 {object} domain.DecisionList "ledger"
// @Router /screening/works/{workID}/decisions [get]
func (h *handlers) decisions(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := httpkit.Param(r, "workID")
	if err != nil {
		return nil, err
	}
	return h.svc.ListDecisions(r.Context(), domain.ListDecisionsQuery{
		ProjectWorkID: id,
		Phase:         domain.Phase(httpkit.Query(r, "phase")),
		RequesterID:   uid,
	})
}

// @Summary Work state
// @Tags screening
// @Produce json
// @Security bearer
// @Param workID path string true "Project work id"
// @Success 200 {object} domain.ProjectWork "work"
// @Router /screening/works/{workID} [get]
func (h *handlers) work(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := httpkit.Param(r, "workID")
	if err != nil {
		return nil, err
	}
	return h.svc.GetWork(r.Context(), id, uid)
}

// @Summary Finalized phases of a work
// @Tags screening
// @Produce json
// @Security bearer
// @Param workID path string true "Project work id"
// @Success 200 {array} domain.PhaseOutcome "history"
// @Router /screening/works/{workID}/history [get]
func (h *handlers) history(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := httpkit.Param(r, "workID")
	if err != nil {
		return nil, err
	}
	return h.svc.PhaseHistory(r.Context(), id, uid)
}

// @Summary Conflict preview for adjudicators
// @Tags screening
// @Produce json
// @Security bearer
// @Param conflictID path string true "Conflict id"
// @Success 200 {object} domain.ConflictPreview "conflict with full ledger"
// @Router /screening/conflicts/{conflictID} [get]
func (h *handlers) preview(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	id, err := httpkit.Param(r, "conflictID")
	if err != nil {
		return nil, err
	}
	return h.svc.PreviewConflict(r.Context(), id, uid)
}

// @Summary Resolve a conflict
// @Tags screening
// @Accept json
// @Produce json
// @Security bearer
// @Param conflictID path string true "Conflict id"
// @Param payload body domain.ResolveInput true "Resolution"
// @Success 200 {object} domain.ResolveResult "resolved"
// @Failure 409 {object} httpkit.Envelope "already resolved"
// @Router /screening/conflicts/{conflictID}/resolve [post]
func (h *handlers) resolve(r *stdhttp.Request, in domain.ResolveInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if in.ConflictID, err = httpkit.Param(r, "conflictID"); err != nil {
		return nil, err
	}
	in.ResolverID = uid
	return h.svc.ResolveConflict(r.Context(), in)
}

// @Summary Conflicts of a project
// @Tags screening
// @Produce json
// @Security bearer
// @Param projectID path string true "Project id"
// @Param status query string false "PENDING or RESOLVED"
// @Param phase query string false "TITLE_ABSTRACT or FULL_TEXT"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} domain.Conflict "conflicts"
// @Router /screening/projects/{projectID}/conflicts [get]
func (h *handlers) conflicts(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	pid, err := httpkit.Param(r, "projectID")
	if err != nil {
		return nil, err
	}
	limit, err := httpkit.QueryInt(r, "limit", 50, 1, 500)
	if err != nil {
		return nil, err
	}
	offset, err := httpkit.QueryInt(r, "offset", 0, 0, 1_000_000)
	if err != nil {
		return nil, err
	}

	page, err := h.svc.ListConflicts(r.Context(), domain.ConflictQuery{
		ProjectID:   pid,
		RequesterID: uid,
		Status:      domain.ConflictStatus(httpkit.Query(r, "status")),
		Phase:       domain.Phase(httpkit.Query(r, "phase")),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, err
	}
	return httpkit.List(page.Items, page.Total, limit, offset), nil
}

// @Summary Status and outcome counts of a project
// @Tags screening
// @Produce json
// @Security bearer
// @Param projectID path string true "Project id"
// @Success 200 {object} domain.PhaseCounts "counts"
// @Router /screening/projects/{projectID}/counts [get]
func (h *handlers) counts(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	pid, err := httpkit.Param(r, "projectID")
	if err != nil {
		return nil, err
	}
	return h.svc.GetPhaseCounts(r.Context(), pid, uid)
}
