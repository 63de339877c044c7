// Package middleware adapts chi and go-chi/cors middleware and adds the
// access log, auth and panic recovery used by the API
package middleware

import (
	"net/http"
	"time"

	pstrings "litscreen/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Func is the middleware shape chi and net/http agree on
type Func = func(http.Handler) http.Handler

// chi middlewares re-exported so modules never import chi directly
var (
	RequestID    Func = chimw.RequestID
	RealIP       Func = chimw.RealIP
	NoCache      Func = chimw.NoCache
	StripSlashes Func = chimw.StripSlashes
)

// Timeout cancels the request context after d
func Timeout(d time.Duration) Func { return chimw.Timeout(d) }

// Compress gzips responses at the given flate level
func Compress(level int) Func { return chimw.Compress(level) }

// Heartbeat answers GET path with 200 before routing
func Heartbeat(path string) Func { return chimw.Heartbeat(path) }

// Throttle caps in flight requests at limit, queueing up to backlog for wait
// before answering 429
func Throttle(limit, backlog int, wait time.Duration) Func {
	return chimw.ThrottleBacklog(limit, backlog, wait)
}

// CORSOptions is the subset of go-chi/cors the API configures
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS applies o with defaults suited to a bearer token JSON API.
// Retry-After is exposed so browsers can honor contention backoff
func CORS(o CORSOptions) Func {
	return cors.Handler(cors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   pstrings.Or(o.AllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		AllowedHeaders:   pstrings.Or(o.AllowedHeaders, []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}),
		ExposedHeaders:   pstrings.Or(o.ExposedHeaders, []string{"Retry-After", "X-Request-ID"}),
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}
