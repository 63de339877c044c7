package store

import (
	"context"
	"fmt"
	"time"

	"litscreen/internal/platform/logger"
	chx "litscreen/internal/platform/store/ch"
	"litscreen/internal/platform/store/pg"
)

// retry is a capped doubling delay
type retry struct {
	attempts int
	delay    time.Duration
	ceiling  time.Duration
}

func (r retry) orDefault() retry {
	if r.attempts <= 0 {
		r.attempts = 20
	}
	if r.delay <= 0 {
		r.delay = 150 * time.Millisecond
	}
	if r.ceiling <= 0 {
		r.ceiling = 2 * time.Second
	}
	return r
}

// do calls fn until it succeeds, attempts run out or ctx ends
func (r retry) do(ctx context.Context, fn func(attempt int) error) error {
	r = r.orDefault()
	var err error
	for i := 1; i <= r.attempts; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
		r.delay = min(r.delay*2, r.ceiling)
	}
	return fmt.Errorf("gave up after %d attempts: %w", r.attempts, err)
}

// openPG builds the pool and waits for it to answer before publishing
// the adapter. Boot pings bypass the adapter so they never hit the trace
func openPG(ctx context.Context, cfg Config, log logger.Logger) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:             cfg.PG.URL,
		MaxConns:        cfg.PG.MaxConns,
		SlowMs:          cfg.PG.SlowQueryMs,
		ApplicationName: cfg.AppName,
	}, tracer)
	if err != nil {
		return nil, err
	}

	timeout := cfg.PG.PingTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	err = retry{attempts: cfg.PG.ConnectRetries}.do(ctx, func(attempt int) error {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		pingErr := p.Pool.Ping(pctx)
		if pingErr != nil {
			log.Warn().Err(pingErr).Int("attempt", attempt).Msg("postgres not ready")
		}
		return pingErr
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	return chx.Open(ctx, chx.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.AppName,
		ClientRole: cfg.CH.ClientRole,
	})
}
