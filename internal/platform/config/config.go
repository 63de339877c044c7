// Package config reads prefix scoped settings from the environment.
//
// May* accessors fall back to a default and warn on malformed input. Must*
// accessors panic through the logger and belong in process bootstrap
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"litscreen/internal/platform/logger"
)

// Conf is a view over variables sharing a prefix, e.g. SCREENING_
type Conf struct{ prefix string }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// parsed reads key with parse, returning def when unset or unparsable
func parsed[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	raw := c.lookup(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", raw).Interface("default", def).Msg("config: unparsable value, using default")
		return def
	}
	return v
}

// MustString returns the value or panics when it is unset
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("config: required value missing")
	}
	return v
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// MayInt returns the integer value or def
func (c Conf) MayInt(key string, def int) int { return parsed(c, key, def, strconv.Atoi) }

// MayPositiveInt is MayInt that also replaces values below 1 with def
func (c Conf) MayPositiveInt(key string, def int) int {
	if v := c.MayInt(key, def); v >= 1 {
		return v
	}
	return def
}

// MayBool returns the strconv boolean value or def
func (c Conf) MayBool(key string, def bool) bool { return parsed(c, key, def, strconv.ParseBool) }

// MayDuration returns a time.ParseDuration value or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return parsed(c, key, def, time.ParseDuration)
}

// MayList splits a comma separated value, dropping blanks
func (c Conf) MayList(key string, def ...string) []string {
	var out []string
	for _, p := range strings.Split(c.lookup(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value lowercased when it matches one of allowed,
// ignoring case. An unset key yields def; anything else panics
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("config: value not allowed")
	return ""
}
