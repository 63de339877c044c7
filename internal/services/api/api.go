// Package api provides the HTTP API for the application
package api

import (
	"time"

	"litscreen/internal/platform/config"
	"litscreen/internal/platform/logger"
	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/platform/store"

	"litscreen/internal/modkit"
	"litscreen/internal/modkit/httpkit"
	"litscreen/internal/modkit/module"
	"litscreen/internal/modkit/swaggerkit"

	metamod "litscreen/internal/services/api/meta/module"
	screeningmod "litscreen/internal/services/api/screening/module"

	// Audit relay module (drains the screening outbox)
	auditmod "litscreen/internal/services/audit/module"
)

// Options are the API options
type Options struct {
	// Config is the root view; modules scope it with their own prefixes
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// ScreeningPorts optionally injects auth or project providers
	ScreeningPorts *screeningmod.Ports
}

// Runtime is the background work that belongs to a mounted API
type Runtime struct {
	Screening screeningmod.Exposed
	Audit     *auditmod.Module
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) Runtime {
	// shared deps for modules
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	// Construct screening first; its outbox and hooks feed the relay
	var screenOpts []modkit.Option
	if opt.ScreeningPorts != nil {
		screenOpts = append(screenOpts, modkit.WithPorts(*opt.ScreeningPorts))
	}
	screening := screeningmod.New(deps, screenOpts...)
	exposed := module.MustPortsOf[screeningmod.Exposed](screening)

	// nil outbox means the relay reads the Postgres outbox
	audit := auditmod.New(deps, exposed.Outbox, auditmod.FromConfig(deps.Cfg))
	exposed.AddHook(module.MustPortsOf[auditmod.Ports](audit).Hook)

	storeName := screeningmod.StorePG
	if exposed.Outbox != nil {
		storeName = screeningmod.StoreMemory
	}

	mods := []module.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Info{Store: storeName})),
		screening,
		audit, // include worker so its ports are registered
	}

	apiCfg := opt.Config.Prefix("CORE_API_")
	stack := httpkit.CommonStack(httpkit.StackOptions{
		AllowedOrigins: apiCfg.MayList("CORS_ORIGINS"),
		SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
		RequestTimeout: apiCfg.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxInFlight:    apiCfg.MayInt("MAX_IN_FLIGHT", 0),
	})

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	return Runtime{Screening: exposed, Audit: audit}
}
