package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	AllowedOrigins []string
	SlowRequest    time.Duration
	RequestTimeout time.Duration
	MaxInFlight    int
}

// CommonStack returns the middleware applied under /api/v1
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.SlowRequest <= 0 {
		o.SlowRequest = 500 * time.Millisecond
	}
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.SlowRequest}),
		middleware.RecoverJSON,
		middleware.NoCache,
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.AllowedOrigins}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.StripSlashes,
		middleware.Timeout(o.RequestTimeout),
	}
	if o.MaxInFlight > 0 {
		stack = append(stack, middleware.Throttle(o.MaxInFlight, o.MaxInFlight*4, o.RequestTimeout))
	}
	return stack
}

// AuthPort resolves the calling user from a request
type AuthPort = middleware.AuthPort

// Auth wires the auth middleware to the platform JSON writer
func Auth(p AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.JSON)
}

// Protected groups routes behind bearer auth
func Protected(r Router, p AuthPort, fn func(Router)) {
	r.Group(func(gr Router) {
		gr.Use(Auth(p))
		fn(gr)
	})
}
