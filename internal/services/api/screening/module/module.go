// Package module wires screening into the API using modkit
package module

import (
	"context"
	"net/http"

	"litscreen/internal/adapters/projects"
	modkit "litscreen/internal/modkit"
	"litscreen/internal/modkit/httpkit"
	"litscreen/internal/modkit/repokit"
	"litscreen/internal/platform/logger"
	str "litscreen/internal/platform/strings"

	shttp "litscreen/internal/services/api/screening/http"
	srepo "litscreen/internal/services/api/screening/repo"
	ssvc "litscreen/internal/services/api/screening/service"
	adom "litscreen/internal/services/audit/domain"
)

// Module implements the screening API module
type Module struct {
	b     modkit.Built
	ports Exposed
	auth  httpkit.AuthPort
	svc   *ssvc.Svc
}

// New constructs the screening module. The store backend, policy file and
// token secret come from SCREENING_* config unless injected through Ports
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("screening"),
		modkit.WithPrefix("/screening"),
	}, opts...)...)

	var injected Ports
	if p, ok := b.Ports.(Ports); ok {
		injected = p
	}
	cfg := merge(FromConfig(deps.Cfg), injected.Options)
	log := logger.Named("screening")

	var static *projects.Static
	if cfg.PolicyFile != "" {
		s, err := projects.Load(cfg.PolicyFile)
		if err != nil {
			log.Panic().Err(err).Str("file", cfg.PolicyFile).Msg("load policy file")
		}
		static = s
	}

	var (
		db     repokit.TxRunner
		binder repokit.Binder[srepo.Repo]
		outbox adom.Outbox
	)
	switch cfg.Store {
	case StoreMemory:
		mem := srepo.NewMemory()
		db, binder, outbox = mem, srepo.NewMemoryBinder(), mem
	default:
		if deps.PG == nil {
			panic("screening module requires a Postgres store (or SCREENING_STORE=memory)")
		}
		db, binder = deps.PG, srepo.NewPG()
	}

	provider := injected.Projects
	if provider == nil {
		var back projects.Provider
		if cfg.Store == StorePG {
			back = projects.NewPG(deps.PG)
		}
		if static == nil && back == nil {
			panic("screening module on the memory store requires SCREENING_POLICY_FILE")
		}
		provider = projects.NewLayered(static, back)
	}

	auth := injected.Auth
	if auth == nil {
		if cfg.AuthSecret == "" {
			panic("screening module requires SCREENING_AUTH_SECRET")
		}
		auth = httpkit.NewPortFunc(projects.NewSigner(cfg.AuthSecret).Verify)
	}

	svc := ssvc.New(db, binder, ssvc.Options{
		Policies:    provider,
		Roles:       provider,
		LockTimeout: cfg.LockTimeout,
		RetryMax:    cfg.RetryMax,
		RetryBase:   cfg.RetryBase,
		Log:         log,
	})

	// the memory store has nothing persistent, so it starts from the file's works
	if cfg.Store == StoreMemory && static != nil {
		for _, p := range static.Projects() {
			for _, w := range p.Works {
				if _, err := svc.AttachWork(context.Background(), p.ID, w); err != nil {
					log.Panic().Err(err).Str("project_id", p.ID).Str("work_id", w).Msg("seed work")
				}
			}
		}
	}

	return &Module{
		b:    b,
		auth: auth,
		svc:  svc,
		ports: Exposed{
			Service: adaptScreeningPort{svc},
			Outbox:  outbox,
			AddHook: svc.AddHook,
			Attach:  svc.AttachWork,
		},
	}
}

func merge(base, over Options) Options {
	if over.LockTimeout != 0 {
		base.LockTimeout = over.LockTimeout
	}
	if over.RetryMax != 0 {
		base.RetryMax = over.RetryMax
	}
	if over.RetryBase != 0 {
		base.RetryBase = over.RetryBase
	}
	if over.PolicyFile != "" {
		base.PolicyFile = over.PolicyFile
	}
	if over.AuthSecret != "" {
		base.AuthSecret = over.AuthSecret
	}
	if over.Store != "" {
		base.Store = over.Store
	}
	return base
}

// MountRoutes mounts the screening routes under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { shttp.Register(rr, m.svc, m.auth) })
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.b.Name, "screening") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.b.Prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.b.Mw }
