package httpkit

import (
	"net/http"
	"strings"

	perrs "litscreen/internal/platform/errors"
	pnet "litscreen/internal/platform/net"
)

// TokenFunc verifies a raw bearer token and returns its user id
type TokenFunc func(token string) (userID string, err error)

// Port reads "Authorization: Bearer <token>" and hands the token to a
// TokenFunc. It satisfies AuthPort
type Port struct{ verify TokenFunc }

// NewPortFunc builds a Port around fn
func NewPortFunc(fn TokenFunc) *Port { return &Port{verify: fn} }

var (
	errNoBearer  = perrs.Unauthorizedf("missing bearer token")
	errBadBearer = perrs.Unauthorizedf("invalid bearer token")
)

// Parse never reveals why a token was rejected
func (p *Port) Parse(r *http.Request) (string, error) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	token = strings.TrimSpace(token)
	if !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", errNoBearer
	}
	if p == nil || p.verify == nil {
		return "", errBadBearer
	}
	if uid, err := p.verify(token); err == nil && uid != "" {
		return uid, nil
	}
	return "", errBadBearer
}

// User is the id Protected stored on the request
func User(r *http.Request) (string, error) {
	if uid := pnet.UserID(r.Context()); uid != "" {
		return uid, nil
	}
	return "", errNoBearer
}
