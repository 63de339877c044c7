package pg

import (
	"context"
	"errors"
	"strings"

	"litscreen/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives one event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer pins its logger at debug so SERVICE_PGSQL_LOG_SQL shows
// statements whatever LOG_LEVEL says
func Tracer(root logger.Logger) QueryTracer {
	return sqlLog{root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type sqlLog struct{ log logger.Logger }

// level picks error for real failures, warn for slow statements and
// debug for the rest. pgx.ErrNoRows is an answer, not a failure
func (ev QueryEvent) level() zerolog.Level {
	switch {
	case ev.Err != nil && !noRows(ev.Err):
		return zerolog.ErrorLevel
	case ev.Slow:
		return zerolog.WarnLevel
	}
	return zerolog.DebugLevel
}

func (s sqlLog) OnQuery(ctx context.Context, ev QueryEvent) {
	e := s.log.WithLevel(ev.level())
	if ev.Err != nil && !noRows(ev.Err) {
		e = e.Err(ev.Err)
	}
	if id := logger.RequestID(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	e.Float64("elapsed_ms", float64(ev.ElapsedUS)/1e3).
		Bool("slow", ev.Slow).
		Str("sql", strings.Join(strings.Fields(ev.SQL), " ")).
		Interface("args", ev.Args).
		Msg("pg query")
}

func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || strings.HasSuffix(err.Error(), "no rows in result set")
}
