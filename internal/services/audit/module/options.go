package module

import (
	"time"

	"litscreen/internal/platform/config"
)

// Options controls the audit relay
type Options struct {
	Owner       string
	Batch       int
	Poll        time.Duration
	Lease       time.Duration
	Concurrency int
	RetryBase   time.Duration
	RetryMax    time.Duration
	LogSink     bool
}

// FromConfig reads with AUDIT_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("AUDIT_")
	return Options{
		Owner:       c.MayString("OWNER", ""),
		Batch:       c.MayInt("BATCH", 64),
		Poll:        c.MayDuration("POLL", 500*time.Millisecond),
		Lease:       c.MayDuration("LEASE", 30*time.Second),
		Concurrency: c.MayInt("CONCURRENCY", 2),
		RetryBase:   c.MayDuration("RETRY_BASE", time.Second),
		RetryMax:    c.MayDuration("RETRY_MAX", 5*time.Minute),
		LogSink:     c.MayBool("LOG_SINK", true),
	}
}
