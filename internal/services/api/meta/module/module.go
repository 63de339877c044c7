// Package module mounts the meta endpoints
package module

import (
	"reflect"
	"time"

	"litscreen/internal/core/version"
	modkit "litscreen/internal/modkit"
	"litscreen/internal/modkit/httpkit"
	str "litscreen/internal/platform/strings"

	metahttp "litscreen/internal/services/api/meta/http"
)

// Info is injected with modkit.WithPorts to describe the running engine
type Info struct {
	Store string
}

// Module serves /meta
type Module struct {
	b         modkit.Built
	http      metahttp.Deps
	startedAt time.Time
}

// New builds the meta module. PG and CH in deps feed the readiness probe
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	var info Info
	if p, ok := b.Ports.(Info); ok {
		info = p
	}

	started := time.Now()
	return &Module{
		b:         b,
		startedAt: started,
		http: metahttp.Deps{
			ServiceName: version.ServiceName,
			StartedAt:   started,
			PG:          seam(deps.PG),
			CH:          seam(deps.CH),
			Store:       info.Store,
		},
	}
}

// seam keeps unset or typed nil stores reporting as skipped
func seam(v any) any {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return v
}

// MountRoutes implements module.Module
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.http) })
}

// Name implements module.Module
func (m *Module) Name() string { return str.MustString(m.b.Name, "meta") }

// Prefix is the mount path under /api/v1
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }

// Ports implements module.Module; meta exports nothing
func (m *Module) Ports() any { return nil }
