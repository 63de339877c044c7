// Package sink holds audit fact destinations
package sink

import (
	"context"
	"fmt"

	"litscreen/internal/platform/store"
	"litscreen/internal/services/audit/domain"
)

// Table is the ClickHouse table audit facts land in
const Table = "screening_audit"

// TableDDL creates Table. ReplacingMergeTree keyed on the fact id folds
// redelivered facts into one row
const TableDDL = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
    id              UUID,
    project_id      LowCardinality(String),
    project_work_id String,
    phase           LowCardinality(String),
    actor_id        String,
    decision        LowCardinality(String),
    source          LowCardinality(String),
    occurred_at     DateTime64(6, 'UTC')
) ENGINE = ReplacingMergeTree
ORDER BY (project_id, id)`

var columns = []string{"id", "project_id", "project_work_id", "phase", "actor_id", "decision", "source", "occurred_at"}

// ClickHouse appends facts to the analytics store
type ClickHouse struct {
	ch store.Clickhouse
}

// NewClickHouse wraps a ClickHouse seam
func NewClickHouse(ch store.Clickhouse) *ClickHouse { return &ClickHouse{ch: ch} }

// Ensure creates the table when missing
func (c *ClickHouse) Ensure(ctx context.Context) error {
	if err := c.ch.Exec(ctx, TableDDL); err != nil {
		return fmt.Errorf("create %s: %w", Table, err)
	}
	return nil
}

// Name identifies the sink in logs
func (c *ClickHouse) Name() string { return "clickhouse" }

// Publish inserts facts in one batch
func (c *ClickHouse) Publish(ctx context.Context, facts []domain.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []any{
			f.ID, f.ProjectID, f.ProjectWorkID, string(f.Phase), f.ActorID,
			string(f.Decision), string(f.Source), f.OccurredAt,
		})
	}
	return c.ch.Insert(ctx, Table, columns, rows)
}
