// Package httpkit is what service http packages import for routing,
// request parsing and auth. It keeps them off internal/platform/net/http
package httpkit

import (
	"net/http"

	phttp "litscreen/internal/platform/net/http"
)

type (
	Envelope = phttp.Envelope
	Page     = phttp.Page
	Response = phttp.Response
	Handler  = phttp.Handler
	Router   = phttp.Router
)

// List is a 200 carrying one page of items
func List(items any, total, limit, offset int) Response {
	return phttp.List(items, total, limit, offset)
}

// Get mounts a body-less handler. A returned Response is written as is,
// anything else becomes a 200 envelope
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.CallHandler(h))
}

// PostJSON mounts a handler whose body is decoded and validated into T
// before h runs
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.JSONHandler(h))
}
