package sink

import (
	"context"

	"litscreen/internal/platform/logger"
	"litscreen/internal/services/audit/domain"
)

// Log writes each fact as a structured log line
type Log struct {
	log *logger.Logger
}

// NewLog returns a log sink; nil uses the audit component logger
func NewLog(l *logger.Logger) *Log {
	if l == nil {
		l = logger.Named("audit")
	}
	return &Log{log: l}
}

// Name identifies the sink in logs
func (l *Log) Name() string { return "log" }

// Publish never fails
func (l *Log) Publish(_ context.Context, facts []domain.Fact) error {
	for _, f := range facts {
		l.log.Info().
			Str("fact_id", f.ID).
			Str("project_id", f.ProjectID).
			Str("project_work_id", f.ProjectWorkID).
			Str("phase", string(f.Phase)).
			Str("decision", string(f.Decision)).
			Str("source", string(f.Source)).
			Str("actor_id", f.ActorID).
			Time("occurred_at", f.OccurredAt).
			Msg("audit: phase finalized")
	}
	return nil
}
