// Package http serves liveness, readiness and build metadata
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"litscreen/internal/core/version"
	"litscreen/internal/modkit/httpkit"
)

// Pinger is satisfied by store seams that can report reachability
type Pinger interface {
	Ping(context.Context) error
}

// Deps are the handler dependencies. PG and CH are nil when not configured
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	// Store names the screening backend, pg or memory
	Store string
}

// readyTimeout bounds the whole readiness probe
const readyTimeout = 2 * time.Second

// check outcomes
const (
	checkOK      = "ok"
	checkFail    = "fail"
	checkSkipped = "skipped"
)

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"litscreen-api"`
	Started string `json:"started" example:"2026-03-01T09:00:00Z"`
	Now     string `json:"now"     example:"2026-03-01T09:05:00Z"`
}

// ReadyCheck is one dependency probe
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
	Millis int64  `json:"ms"              example:"3"`
}

// ReadyResponse is ok when every backend answers, degraded when one is not
// configured and fail when one is down
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-03-01T09:05:00Z"`
}

// ServiceResponse is the service name and uptime in seconds
type ServiceResponse struct {
	Name    string `json:"name"    example:"litscreen-api"`
	Started string `json:"started" example:"2026-03-01T09:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// EngineResponse reports the screening backend, whether audit facts reach
// ClickHouse, and the build
type EngineResponse struct {
	Store     string            `json:"store"     example:"pg"`
	Analytics bool              `json:"analytics" example:"true"`
	Build     version.BuildInfo `json:"build"`
}

type handlers struct {
	d      Deps
	probes []probe
}

type probe struct {
	name string
	dep  any
}

// Register mounts the meta routes on r
func Register(r httpkit.Router, d Deps) {
	h := &handlers{d: d, probes: []probe{{"pg", d.PG}, {"ch", d.CH}}}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/engine", h.engine)
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.d.ServiceName, Started: stamp(h.d.StartedAt), Now: stamp(time.Now())}, nil
}

func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.d.ServiceName,
		Started: stamp(h.d.StartedAt),
		Uptime:  int64(time.Since(h.d.StartedAt) / time.Second),
	}, nil
}

func (h *handlers) engine(*http.Request) (any, error) {
	return EngineResponse{Store: h.d.Store, Analytics: h.d.CH != nil, Build: version.Info()}, nil
}

// ready probes every backend in parallel. A failing backend answers 503 so
// load balancers drain the instance
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make([]ReadyCheck, len(h.probes))
	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = run(ctx, p)
		}()
	}
	wg.Wait()

	out := ReadyResponse{Status: checkOK, Checks: checks, Now: stamp(time.Now())}
	for _, c := range checks {
		switch {
		case c.Status == checkFail:
			out.Status = checkFail
		case c.Status != checkOK && out.Status == checkOK:
			out.Status = "degraded"
		}
	}
	if out.Status == checkFail {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: out}, nil
	}
	return out, nil
}

func run(ctx context.Context, p probe) ReadyCheck {
	if p.dep == nil {
		return ReadyCheck{Name: p.name, Status: checkSkipped}
	}
	pinger, ok := p.dep.(Pinger)
	if !ok {
		return ReadyCheck{Name: p.name, Status: "unknown"}
	}
	start := time.Now()
	err := pinger.Ping(ctx)
	c := ReadyCheck{Name: p.name, Status: checkOK, Millis: time.Since(start).Milliseconds()}
	if err != nil {
		c.Status, c.Error = checkFail, err.Error()
	}
	return c
}
