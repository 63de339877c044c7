// Package modkit wires feature modules: shared deps in, ports and routes out
package modkit

import (
	"net/http"

	"litscreen/internal/modkit/module"
	"litscreen/internal/modkit/repokit"
	"litscreen/internal/platform/config"
	"litscreen/internal/platform/logger"
	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/platform/store"
)

// Module is the surface api.Mount composes
type Module = module.Module

// Deps are the process wide collaborators handed to every module.
// PG and CH are nil when the backend is not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Option adjusts how a module is built
type Option func(*Built)

// Built is the resolved module configuration
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	// Ports carries collaborators injected by the caller; the module owns the type
	Ports any
	// Register attaches extra routes after the module's own
	Register func(phttp.Router)
}

// Build applies opts in order; later options win
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	b.Mw = append([]func(http.Handler) http.Handler(nil), b.Mw...)
	return b
}

// WithName sets the registry and log name
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix sets the route prefix under /api/v1
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares appends route middlewares, outermost first
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithPorts injects collaborators of the module's own Ports type
func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

// WithRegister adds routes next to the module's own
func WithRegister(fn func(phttp.Router)) Option { return func(b *Built) { b.Register = fn } }

// Mount groups routes under Prefix with the module middlewares applied
func (b Built) Mount(r phttp.Router, routes func(phttp.Router)) {
	r.Route(b.Prefix, func(rr phttp.Router) {
		for _, mw := range b.Mw {
			rr.Use(mw)
		}
		if routes != nil {
			routes(rr)
		}
		if b.Register != nil {
			b.Register(rr)
		}
	})
}
