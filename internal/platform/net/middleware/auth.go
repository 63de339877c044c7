package middleware

import (
	"net/http"

	"litscreen/internal/platform/logger"
	pnet "litscreen/internal/platform/net"
)

// AuthPort resolves the calling user from a request
type AuthPort interface {
	Parse(r *http.Request) (userID string, err error)
}

// Writer renders a status and body; the platform JSON writer satisfies it
type Writer = func(w http.ResponseWriter, status int, body any)

// Auth answers requests p cannot authenticate with the error envelope and
// otherwise puts the user id on the context. A nil port disables the check
func Auth(p AuthPort, write Writer) Func {
	if p == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			uid, err := p.Parse(r)
			if err != nil {
				status, body := pnet.Error(err, pnet.RequestID(ctx))
				write(w, status, body)
				return
			}
			ctx = logger.WithRequest(pnet.WithUser(ctx, uid), pnet.RequestID(ctx), uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
