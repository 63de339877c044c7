package projects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	perr "litscreen/internal/platform/errors"
	"litscreen/internal/services/api/screening/domain"
)

// Project is one entry of a policy file
type Project struct {
	ID      string
	Name    string
	Policy  domain.Policy
	Members map[string]domain.Role
	Works   []string
}

type fileDoc struct {
	Projects []fileProject `yaml:"projects"`
}

type fileProject struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	BlindScreening    *bool             `yaml:"blind_screening"`
	RequiredReviewers int               `yaml:"required_reviewers"`
	Members           map[string]string `yaml:"members"`
	Works             []string          `yaml:"works"`
}

// Static serves policies and roles from a parsed policy file
type Static struct {
	byID  map[string]Project
	order []string
}

// Load reads and validates a policy file
func Load(path string) (*Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return Parse(b)
}

// Parse decodes a policy document. blind_screening defaults to true and
// required_reviewers to 2
func Parse(b []byte) (*Static, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var doc fileDoc
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Wrap(err, perr.ErrorCodeValidation, "decode policy file")
	}

	s := &Static{byID: make(map[string]Project, len(doc.Projects))}
	for i, fp := range doc.Projects {
		p, err := fp.project()
		if err != nil {
			return nil, perr.WithField(err, fmt.Sprintf("projects[%d]", i))
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, perr.Validationf("duplicate project %q", p.ID)
		}
		s.byID[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return s, nil
}

func (fp fileProject) project() (Project, error) {
	id := strings.TrimSpace(fp.ID)
	if id == "" {
		return Project{}, perr.Validationf("project id is required")
	}
	p := Project{
		ID:      id,
		Name:    fp.Name,
		Policy:  domain.Policy{BlindScreening: true, RequiredReviewers: 2},
		Members: make(map[string]domain.Role, len(fp.Members)),
	}
	if fp.BlindScreening != nil {
		p.Policy.BlindScreening = *fp.BlindScreening
	}
	switch {
	case fp.RequiredReviewers < 0:
		return Project{}, perr.Validationf("project %s: required_reviewers must be at least 1", id)
	case fp.RequiredReviewers > 0:
		p.Policy.RequiredReviewers = fp.RequiredReviewers
	}
	for user, r := range fp.Members {
		role := domain.Role(strings.ToUpper(strings.TrimSpace(r)))
		if !role.Valid() {
			return Project{}, perr.Validationf("project %s: member %s has unknown role %q", id, user, r)
		}
		p.Members[user] = role
	}
	seen := make(map[string]bool, len(fp.Works))
	for _, w := range fp.Works {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		p.Works = append(p.Works, w)
	}
	return p, nil
}

// Has reports whether the file defines projectID
func (s *Static) Has(projectID string) bool {
	_, ok := s.byID[projectID]
	return ok
}

// Projects returns the projects in file order
func (s *Static) Projects() []Project {
	out := make([]Project, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Policy returns the project's screening policy
func (s *Static) Policy(_ context.Context, projectID string) (domain.Policy, error) {
	p, ok := s.byID[projectID]
	if !ok {
		return domain.Policy{}, perr.NotFoundf("project %s not found", projectID)
	}
	return p.Policy, nil
}

// Role returns the member's role; ok is false for non members
func (s *Static) Role(_ context.Context, projectID, userID string) (domain.Role, bool, error) {
	p, ok := s.byID[projectID]
	if !ok {
		return "", false, nil
	}
	r, ok := p.Members[userID]
	return r, ok, nil
}

// Summary renders one line per project for the admin tool
func (s *Static) Summary() []string {
	var out []string
	for _, p := range s.Projects() {
		roles := map[domain.Role]int{}
		for _, r := range p.Members {
			roles[r]++
		}
		keys := make([]string, 0, len(roles))
		for r, n := range roles {
			keys = append(keys, fmt.Sprintf("%s=%d", strings.ToLower(string(r)), n))
		}
		sort.Strings(keys)
		out = append(out, fmt.Sprintf("%s blind=%t required=%d works=%d %s",
			p.ID, p.Policy.BlindScreening, p.Policy.RequiredReviewers, len(p.Works), strings.Join(keys, " ")))
	}
	return out
}
