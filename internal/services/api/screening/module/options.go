package module

import (
	"time"

	"litscreen/internal/platform/config"
)

// Store backends
const (
	StorePG     = "pg"
	StoreMemory = "memory"
)

// Options controls the screening engine
type Options struct {
	LockTimeout time.Duration // per work exclusion wait, in process and on the row lock
	RetryMax    int
	RetryBase   time.Duration
	PolicyFile  string // optional static projects file
	AuthSecret  string // HMAC key for bearer tokens
	Store       string // pg or memory
}

// FromConfig reads SCREENING_* values from process config/env
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SCREENING_")
	return Options{
		LockTimeout: c.MayDuration("LOCK_TIMEOUT", 2*time.Second),
		RetryMax:    c.MayInt("RETRY_MAX", 3),
		RetryBase:   c.MayDuration("RETRY_BASE", 50*time.Millisecond),
		PolicyFile:  c.MayString("POLICY_FILE", ""),
		AuthSecret:  c.MayString("AUTH_SECRET", ""),
		Store:       c.MayEnum("STORE", StorePG, StorePG, StoreMemory),
	}
}
