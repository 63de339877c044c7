// Package module wires the audit relay and exposes its ports
package module

import (
	"context"

	"litscreen/internal/modkit"
	"litscreen/internal/modkit/httpkit"
	"litscreen/internal/services/audit/domain"
	"litscreen/internal/services/audit/repo"
	"litscreen/internal/services/audit/service"
	"litscreen/internal/services/audit/sink"
)

// Module defines the audit relay module
type Module struct {
	deps  modkit.Deps
	ports Ports
	ch    *sink.ClickHouse
}

// New constructs the relay. A nil outbox means the Postgres outbox over deps.PG
func New(deps modkit.Deps, outbox domain.Outbox, overrides Options) *Module {
	// Load defaults, then apply non-zero overrides
	opts := FromConfig(deps.Cfg)

	if overrides.Owner != "" {
		opts.Owner = overrides.Owner
	}
	if overrides.Batch != 0 {
		opts.Batch = overrides.Batch
	}
	if overrides.Poll != 0 {
		opts.Poll = overrides.Poll
	}
	if overrides.Lease != 0 {
		opts.Lease = overrides.Lease
	}
	if overrides.Concurrency != 0 {
		opts.Concurrency = overrides.Concurrency
	}
	if overrides.RetryBase != 0 {
		opts.RetryBase = overrides.RetryBase
	}
	if overrides.RetryMax != 0 {
		opts.RetryMax = overrides.RetryMax
	}

	if outbox == nil {
		outbox = repo.NewOutbox(deps.PG)
	}

	m := &Module{deps: deps}
	var sinks []domain.Sink
	if deps.CH != nil {
		m.ch = sink.NewClickHouse(deps.CH)
		sinks = append(sinks, m.ch)
	}
	if opts.LogSink || len(sinks) == 0 {
		sinks = append(sinks, sink.NewLog(nil))
	}

	svc := service.New(outbox, sinks, service.Config{
		Owner:       opts.Owner,
		Batch:       opts.Batch,
		Poll:        opts.Poll,
		Lease:       opts.Lease,
		Concurrency: opts.Concurrency,
		RetryBase:   opts.RetryBase,
		RetryMax:    opts.RetryMax,
	})
	m.ports = Ports{
		Worker: svc,
		Nudge:  svc,
		Hook:   svc.Hook(),
	}
	return m
}

// Ensure prepares sink storage; it is a no-op without ClickHouse
func (m *Module) Ensure(ctx context.Context) error {
	if m.ch == nil {
		return nil
	}
	return m.ch.Ensure(ctx)
}

// Ports returns the module ports (Worker, Nudge, Hook)
func (m *Module) Ports() any { return m.ports }

// Name returns the module name
func (m *Module) Name() string { return "audit" }

// Prefix returns the module config prefix (none for worker-only service)
func (m *Module) Prefix() string { return "" }

// MountRoutes returns no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
