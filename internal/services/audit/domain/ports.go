// Package domain defines the audit relay ports
package domain

import (
	"context"
	"time"

	sdomain "litscreen/internal/services/api/screening/domain"
)

// Fact is a phase finalization record produced by screening
type Fact = sdomain.AuditFact

// Outbox is the durable queue of undelivered facts
type Outbox interface {
	// Lease hands out up to limit ready facts, hidden from other owners for ttl
	Lease(ctx context.Context, owner string, limit int, ttl time.Duration) ([]sdomain.OutboxEntry, error)
	// Ack marks facts delivered
	Ack(ctx context.Context, ids []string) error
	// Retry releases a lease and schedules the next attempt
	Retry(ctx context.Context, id string, next time.Time, reason string) error
}

// Sink receives delivered facts. Delivery is at least once, so sinks must
// tolerate a fact arriving again after a failed acknowledgement
type Sink interface {
	Name() string
	Publish(ctx context.Context, facts []Fact) error
}

// WorkerPort runs the relay loop until ctx ends
type WorkerPort interface {
	Run(ctx context.Context) error
}

// NudgePort wakes an idle relay
type NudgePort interface {
	Nudge()
}
