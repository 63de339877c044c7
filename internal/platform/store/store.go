// Package store opens the postgres and clickhouse backends behind small
// seams so services and repositories never import a driver
package store

import (
	"context"
	"errors"
	"fmt"

	"litscreen/internal/platform/logger"
)

// Store holds whichever backends were enabled. Disabled ones stay nil
type Store struct {
	Log logger.Logger

	PG TxRunner
	CH Clickhouse
}

// Option adjusts a Store before backends are opened
type Option func(*Store) error

// WithLogger routes backend logs, including slow query tracing, to log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error { s.Log = log; return nil }
}

// Open dials every enabled backend. A failure closes what was already
// opened before returning
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, apply := range opts {
		if err := apply(s); err != nil {
			return nil, fmt.Errorf("store option: %w", err)
		}
	}
	s.Log = s.Log.With().Str("app", cfg.AppName).Logger()

	if cfg.PG.Enabled {
		pg, err := openPG(ctx, cfg, s.Log)
		if err != nil {
			return nil, err
		}
		s.PG = pg
	}

	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg)
		if err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
		s.CH = ch
	}

	s.Log.Debug().Bool("pg", s.PG != nil).Bool("ch", s.CH != nil).Msg("store opened")
	return s, nil
}

type backend struct {
	name string
	v    any
}

// backends lists the configured seams in close order
func (s *Store) backends() []backend {
	var out []backend
	if s.CH != nil {
		out = append(out, backend{"ch", s.CH})
	}
	if s.PG != nil {
		out = append(out, backend{"pg", s.PG})
	}
	return out
}

// Guard pings every configured backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	var errs []error
	for _, b := range s.backends() {
		p, ok := b.v.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases clickhouse first, then the postgres pool
func (s *Store) Close(context.Context) error {
	var errs []error
	for _, b := range s.backends() {
		c, ok := b.v.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}
