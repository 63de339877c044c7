package httpkit

import (
	"net/http"
	"strconv"
	"strings"

	perrs "litscreen/internal/platform/errors"
	phttp "litscreen/internal/platform/net/http"
)

func fieldErr(name, format string, args ...any) error {
	return perrs.WithField(perrs.Validationf(format, args...), name)
}

// Param is a required path parameter
func Param(r *http.Request, name string) (string, error) {
	if v := strings.TrimSpace(phttp.Param(r, name)); v != "" {
		return v, nil
	}
	return "", fieldErr(name, "%s is required", name)
}

// Query is a trimmed, optional query parameter
func Query(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// QueryInt reads an optional integer in [lo, hi]; absent means def
func QueryInt(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := Query(r, name)
	if s == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= lo && n <= hi {
		return n, nil
	}
	return 0, fieldErr(name, "%s must be an integer between %d and %d", name, lo, hi)
}
