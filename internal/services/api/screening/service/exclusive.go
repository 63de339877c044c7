package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"litscreen/internal/modkit/repokit"
	perr "litscreen/internal/platform/errors"
	"litscreen/internal/services/api/screening/domain"
	"litscreen/internal/services/api/screening/repo"
)

func lockKey(projectWorkID string, phase domain.Phase) string {
	return projectWorkID + "|" + string(phase)
}

// exclusive runs fn in one write transaction while holding the key, retrying
// contention with jittered backoff. fn may run more than once and must not
// leak state between attempts
func (s *Svc) exclusive(ctx context.Context, key string, fn func(r repo.Repo) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, key, fn)
		if err == nil || !perr.Retryable(err) || attempt >= s.retryMax {
			break
		}
		wait := jitter(s.retryBase << attempt)
		s.log.Warn().Err(err).
			Str("key", key).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("screening: contended, retrying")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return callerDone(ctx)
		case <-t.C:
		}
	}

	if err != nil && perr.Retryable(err) {
		s.log.Warn().Err(err).Str("key", key).Msg("screening: contention timeout")
		if !perr.IsCode(err, perr.ErrorCodeContention) {
			return perr.Wrap(err, perr.ErrorCodeContention, "work is busy, retry later")
		}
	}
	return err
}

func (s *Svc) attempt(ctx context.Context, key string, fn func(r repo.Repo) error) error {
	actx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	release, err := s.locks.Acquire(actx, key)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return callerDone(ctx)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return perr.Contentionf("timed out after %s waiting for %s", s.lockTimeout, key)
		}
		return err
	}
	defer release()

	return s.writer.Tx(ctx, func(q repokit.Queryer) error {
		return fn(s.binder.Bind(q))
	})
}

// callerDone maps an ended caller context. A deadline is contention the
// caller may retry; a cancel passes through untouched
func callerDone(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return perr.Wrap(err, perr.ErrorCodeContention, "work is busy, retry later")
	}
	return err
}

func jitter(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	return d/2 + time.Duration(rand.Int63n(int64(d/2)))
}
