package middleware

import (
	"net/http"
	"time"

	"litscreen/internal/platform/logger"
	pnet "litscreen/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures AccessLogZerolog
type AccessLogOptions struct {
	// Slow logs requests at warn once they take this long; 0 disables
	Slow time.Duration
}

// AccessLogZerolog writes one line per request with the status, size, latency
// and the user Auth resolved further down the chain. 5xx and slow requests log
// at warn so contention shows up without debug logging
func AccessLogZerolog(opt AccessLogOptions) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, user := pnet.TrackUser(r.Context())
			ctx = logger.WithRequest(ctx, pnet.RequestID(ctx), "")
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			took := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.C(ctx)
			evt := log.Info()
			if status >= http.StatusInternalServerError || (opt.Slow > 0 && took >= opt.Slow) {
				evt = log.Warn()
			}
			if id := user(); id != "" {
				evt = evt.Str("actor_id", id)
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("took", took).
				Msg("http request")
		})
	}
}
