// Package raw reads environment variables before the logger exists.
// It must not import logger
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Env is a prefixed view over the process environment
type Env string

// New returns the unprefixed view
func New() Env { return "" }

// Prefix nests p under the current prefix
func (e Env) Prefix(p string) Env { return e + Env(p) }

func (e Env) lookup(key string) string {
	return strings.TrimSpace(os.Getenv(string(e) + key))
}

// Get returns the trimmed value, or def when unset or blank
func (e Env) Get(key, def string) string {
	if v := e.lookup(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts strconv booleans plus yes/no and on/off
func (e Env) GetBool(key string, def bool) bool {
	switch v := strings.ToLower(e.lookup(key)); v {
	case "":
		return def
	case "yes", "on":
		return true
	case "no", "off":
		return false
	default:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
}

// GetInt returns a non-negative integer, or def for anything else
func (e Env) GetInt(key string, def int) int {
	n, err := strconv.Atoi(e.lookup(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
