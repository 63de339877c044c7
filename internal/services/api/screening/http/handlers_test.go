package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"litscreen/internal/core/consensus"
	"litscreen/internal/modkit/httpkit"
	perr "litscreen/internal/platform/errors"
	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/services/api/screening/domain"
	"litscreen/internal/services/api/screening/repo"
	svc "litscreen/internal/services/api/screening/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type members map[string]domain.Role

func (m members) Policy(_ context.Context, id string) (domain.Policy, error) {
	if id != "p1" {
		return domain.Policy{}, perr.NotFoundf("project %s not found", id)
	}
	return domain.Policy{BlindScreening: true, RequiredReviewers: 2}, nil
}

func (m members) Role(_ context.Context, id, user string) (domain.Role, bool, error) {
	r, ok := m[user]
	return r, ok && id == "p1", nil
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       perr.ErrorCode  `json:"code"`
	Error      string          `json:"error"`
	Field      string          `json:"field"`
	Data       json.RawMessage `json:"data"`
}

type server struct {
	t   *testing.T
	mux *chi.Mux
	pw  string
}

func newServer(t *testing.T) *server {
	t.Helper()
	m := members{"r1": domain.RoleReviewer, "r2": domain.RoleReviewer, "lead": domain.RoleLead}
	s := svc.New(repo.NewMemory(), repo.NewMemoryBinder(), svc.Options{Policies: m, Roles: m})
	w, err := s.AttachWork(context.Background(), "p1", "w1")
	require.NoError(t, err)

	auth := httpkit.NewPortFunc(func(tok string) (string, error) {
		if _, ok := m[tok]; ok || tok == "stranger" {
			return tok, nil
		}
		return "", errors.New("bad token")
	})
	mux := chi.NewRouter()
	phttp.AdaptChi(mux).Route("/screening", func(r httpkit.Router) { Register(r, s, auth) })
	return &server{t: t, mux: mux, pw: w.ID}
}

func (s *server) do(method, path, user, body string) (int, envelope) {
	s.t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestRoutes_RequireBearer(t *testing.T) {
	s := newServer(t)
	code, env := s.do(stdhttp.MethodGet, "/screening/works/"+s.pw, "", "")
	assert.Equal(t, stdhttp.StatusUnauthorized, code)
	assert.Equal(t, perr.ErrorCodeUnauthorized, env.Code)

	code, _ = s.do(stdhttp.MethodGet, "/screening/works/"+s.pw, "nobody", "")
	assert.Equal(t, stdhttp.StatusUnauthorized, code)

	code, _ = s.do(stdhttp.MethodGet, "/screening/works/"+s.pw, "stranger", "")
	assert.Equal(t, stdhttp.StatusForbidden, code)
}

func TestRoutes_SubmitConflictResolve(t *testing.T) {
	s := newServer(t)
	path := "/screening/works/" + s.pw + "/decisions"

	code, env := s.do(stdhttp.MethodPost, path, "r1", `{"phase":"TITLE_ABSTRACT","decision":"INCLUDE"}`)
	require.Equal(t, stdhttp.StatusOK, code, env.Error)

	code, env = s.do(stdhttp.MethodGet, path, "r2", "")
	require.Equal(t, stdhttp.StatusOK, code)
	var list domain.DecisionList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.True(t, list.Hidden)
	assert.Empty(t, list.Decisions)

	code, env = s.do(stdhttp.MethodPost, path, "r2", `{"phase":"TITLE_ABSTRACT","decision":"EXCLUDE","reasoning":"wrong population"}`)
	require.Equal(t, stdhttp.StatusOK, code, env.Error)
	var res domain.SubmitResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, consensus.Conflict, res.Outcome)

	code, _ = s.do(stdhttp.MethodPost, path, "r2", `{"phase":"TITLE_ABSTRACT","decision":"INCLUDE"}`)
	assert.Equal(t, stdhttp.StatusConflict, code)

	code, _ = s.do(stdhttp.MethodGet, "/screening/conflicts/"+res.ConflictID, "r1", "")
	assert.Equal(t, stdhttp.StatusForbidden, code)
	code, _ = s.do(stdhttp.MethodGet, "/screening/conflicts/"+res.ConflictID, "lead", "")
	assert.Equal(t, stdhttp.StatusOK, code)

	resolve := "/screening/conflicts/" + res.ConflictID + "/resolve"
	code, env = s.do(stdhttp.MethodPost, resolve, "lead", `{"decision":"INCLUDE","reasoning":"Relevant to topic"}`)
	require.Equal(t, stdhttp.StatusOK, code, env.Error)
	var out domain.ResolveResult
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, consensus.PhaseFullText, out.Work.Phase)

	code, env = s.do(stdhttp.MethodPost, resolve, "lead", `{"decision":"EXCLUDE"}`)
	assert.Equal(t, stdhttp.StatusConflict, code)
	assert.Equal(t, perr.ErrorCodeState, env.Code)

	code, env = s.do(stdhttp.MethodGet, "/screening/works/"+s.pw+"/history", "r1", "")
	require.Equal(t, stdhttp.StatusOK, code)
	var hist []domain.PhaseOutcome
	require.NoError(t, json.Unmarshal(env.Data, &hist))
	require.Len(t, hist, 1)
	assert.Equal(t, consensus.SourceAdjudication, hist[0].Source)
}

func TestRoutes_ValidationErrors(t *testing.T) {
	s := newServer(t)
	path := "/screening/works/" + s.pw + "/decisions"

	code, env := s.do(stdhttp.MethodPost, path, "r1", `{"phase":"TITLE_ABSTRACT","decision":"PROBABLY"}`)
	assert.Equal(t, stdhttp.StatusBadRequest, code)
	assert.Equal(t, perr.ErrorCodeValidation, env.Code)

	code, _ = s.do(stdhttp.MethodGet, "/screening/projects/p1/conflicts?limit=0", "lead", "")
	assert.Equal(t, stdhttp.StatusBadRequest, code)
}

func TestRoutes_ProjectViews(t *testing.T) {
	s := newServer(t)

	code, env := s.do(stdhttp.MethodGet, "/screening/projects/p1/conflicts?status=PENDING", "lead", "")
	require.Equal(t, stdhttp.StatusOK, code, env.Error)
	var page struct {
		Items []domain.Conflict `json:"items"`
		Page  httpkit.Page      `json:"page"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Items)
	assert.Equal(t, 50, page.Page.Limit)

	code, env = s.do(stdhttp.MethodGet, "/screening/projects/p1/counts", "r1", "")
	require.Equal(t, stdhttp.StatusOK, code)
	var counts domain.PhaseCounts
	require.NoError(t, json.Unmarshal(env.Data, &counts))
	assert.Equal(t, 1, counts.Pending)

	code, _ = s.do(stdhttp.MethodGet, "/screening/projects/nope/counts", "r1", "")
	assert.Equal(t, stdhttp.StatusNotFound, code)
}
