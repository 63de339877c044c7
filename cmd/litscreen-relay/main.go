// Command litscreen-relay drains the screening audit outbox into the configured sinks
package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"litscreen/internal/modkit"
	"litscreen/internal/modkit/module"
	"litscreen/internal/platform/config"
	"litscreen/internal/platform/logger"
	"litscreen/internal/platform/store"

	auditmod "litscreen/internal/services/audit/module"
)

func main() {
	if _, err := config.LoadDotenv(); err != nil {
		logger.Get().Panic().Err(err).Msg("load dotenv")
	}
	root := config.New()

	l := logger.Get()

	var (
		fBatch = flag.Int("batch", 0, "outbox lease batch size (default AUDIT_BATCH)")
		fConc  = flag.Int("concurrency", 0, "parallel deliveries per batch (default AUDIT_CONCURRENCY)")
		fPoll  = flag.Duration("poll", 0, "idle poll interval (default AUDIT_POLL)")
		fLease = flag.Duration("lease", 0, "lease duration before redelivery (default AUDIT_LEASE)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeCfg := store.FromEnv(root, "litscreen-relay", 4)
	if !storeCfg.PG.Enabled {
		l.Panic().Msg("SERVICE_PGSQL_DBURL is required")
	}
	st, err := store.Open(ctx, storeCfg, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	mod := auditmod.New(deps, nil, auditmod.Options{
		Batch:       *fBatch,
		Concurrency: *fConc,
		Poll:        *fPoll,
		Lease:       *fLease,
	})
	module.Register(mod.Name(), mod.Ports())

	ectx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = mod.Ensure(ectx)
	cancel()
	if err != nil {
		l.Panic().Err(err).Msg("prepare audit sink")
	}

	ports := module.MustPortsOf[auditmod.Ports](mod)
	if err := ports.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("audit relay failed")
	}
}
