// Package service runs the audit relay: it drains the outbox into sinks
package service

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"sync"
	"time"

	"litscreen/internal/platform/logger"
	ptime "litscreen/internal/platform/time"
	"litscreen/internal/services/audit/domain"
	sdomain "litscreen/internal/services/api/screening/domain"
)

// Service implements the relay ports
type Service interface {
	domain.WorkerPort
	domain.NudgePort
}

// Config controls the relay
type Config struct {
	Owner       string
	Batch       int
	Poll        time.Duration
	Lease       time.Duration
	Concurrency int
	RetryBase   time.Duration
	RetryMax    time.Duration
}

// Svc is the relay worker
type Svc struct {
	outbox domain.Outbox
	sinks  []domain.Sink
	cfg    Config
	nudge  chan struct{}
	log    *logger.Logger
	now    func() time.Time
}

// New constructs the relay
func New(outbox domain.Outbox, sinks []domain.Sink, cfg Config) *Svc {
	if outbox == nil {
		panic("audit.Service requires a non nil Outbox")
	}
	if cfg.Owner == "" {
		host, _ := os.Hostname()
		cfg.Owner = "relay@" + host
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 64
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5 * time.Minute
	}
	return &Svc{
		outbox: outbox,
		sinks:  sinks,
		cfg:    cfg,
		nudge:  make(chan struct{}, 1),
		log:    logger.Named("audit-relay"),
		now:    ptime.UTC,
	}
}

// Nudge wakes the loop without waiting for the next tick
func (s *Svc) Nudge() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// Hook adapts Nudge to the screening post commit hook
func (s *Svc) Hook() sdomain.FactHook {
	return func(context.Context, []sdomain.AuditFact) { s.Nudge() }
}

// Run drains the outbox on every tick or nudge until ctx ends
func (s *Svc) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Poll)
	defer ticker.Stop()

	s.log.Info().Str("owner", s.cfg.Owner).Int("sinks", len(s.sinks)).Msg("audit relay started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-s.nudge:
		}
		// keep draining while full batches come back
		for {
			n, err := s.Drain(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.log.Error().Err(err).Msg("lease audit facts failed")
				}
				break
			}
			if n < s.cfg.Batch {
				break
			}
		}
	}
}

// Drain leases one batch and delivers it; it returns how many facts were leased
func (s *Svc) Drain(ctx context.Context) (int, error) {
	entries, err := s.outbox.Lease(ctx, s.cfg.Owner, s.cfg.Batch, s.cfg.Lease)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var (
		mu    sync.Mutex
		acked []string
		wg    sync.WaitGroup
		sem   = make(chan struct{}, max(1, s.cfg.Concurrency))
	)
	for i := range entries {
		e := entries[i]
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem; wg.Done() }()
			if err := s.deliver(ctx, e.Fact); err != nil {
				next := s.now().Add(s.backoff(e.Attempts))
				s.log.Warn().Err(err).
					Str("fact_id", e.Fact.ID).
					Int("attempts", e.Attempts+1).
					Time("next_attempt_at", next).
					Msg("audit delivery failed")
				if rerr := s.outbox.Retry(ctx, e.Fact.ID, next, err.Error()); rerr != nil {
					s.log.Error().Err(rerr).Str("fact_id", e.Fact.ID).Msg("audit retry bookkeeping failed")
				}
				return
			}
			mu.Lock()
			acked = append(acked, e.Fact.ID)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(acked) == 0 {
		return len(entries), nil
	}
	if err := s.outbox.Ack(ctx, acked); err != nil {
		// the leases expire and the facts are sent again
		s.log.Error().Err(err).Int("facts", len(acked)).Msg("audit ack failed")
	}
	return len(entries), nil
}

func (s *Svc) deliver(ctx context.Context, f domain.Fact) error {
	var errs []error
	for _, sk := range s.sinks {
		if err := sk.Publish(ctx, []domain.Fact{f}); err != nil {
			errs = append(errs, errors.New(sk.Name()+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// backoff doubles per attempt up to RetryMax, jittered into [d/2, d)
func (s *Svc) backoff(attempts int) time.Duration {
	d := s.cfg.RetryBase
	for i := 0; i < attempts && d < s.cfg.RetryMax; i++ {
		d *= 2
	}
	d = min(d, s.cfg.RetryMax)
	if d < 2 {
		return d
	}
	return d/2 + time.Duration(rand.Int63n(int64(d/2)))
}
