// @title         Litscreen API
// @version       0.1.0
// @description   Screening consensus for systematic literature reviews

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"litscreen/internal/platform/config"
	"litscreen/internal/platform/logger"
	phttp "litscreen/internal/platform/net/http"
	"litscreen/internal/platform/store"

	"litscreen/internal/modkit/module"
	"litscreen/internal/services/api"
	auditmod "litscreen/internal/services/audit/module"
)

func main() {
	// .env first so every prefixed view below sees it
	dotenv, derr := config.LoadDotenv()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_") // http server knobs live under CORE_API_*

	// bring up logging early
	l := logger.Get()
	if derr != nil {
		l.Panic().Err(derr).Msg("load dotenv")
	}
	if dotenv != "" {
		l.Info().Str("file", dotenv).Msg("dotenv loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memory := root.Prefix("SCREENING_").MayEnum("STORE", "pg", "pg", "memory") == "memory"

	// open the platform store (postgres + optional CH audit sink)
	storeCfg := store.FromEnv(root, "litscreen-api", 8)
	storeCfg.PG.Enabled = storeCfg.PG.Enabled && !memory
	st, err := store.Open(ctx, storeCfg,
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads CORE_API_ADDR / CORE_API_SHUTDOWN_GRACE)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	rt := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	// the relay runs in process unless a standalone litscreen-relay owns it
	if root.Prefix("AUDIT_").MayBool("IN_PROCESS", true) {
		if err := rt.Audit.Ensure(ctx); err != nil {
			l.Panic().Err(err).Msg("prepare audit sink")
		}
		relay := module.MustPortsOf[auditmod.Ports](rt.Audit).Worker
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Error().Err(err).Msg("audit relay stopped")
			}
		}()
	}

	// run
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
