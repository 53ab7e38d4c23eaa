package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mediadiary-server/internal/config"
	"mediadiary-server/internal/diary"
	"mediadiary-server/internal/docstore"
	"mediadiary-server/internal/docstore/postgres"
	"mediadiary-server/internal/docstore/sqlite"
	"mediadiary-server/internal/jobs"
	"mediadiary-server/internal/logger"
	"mediadiary-server/internal/metrics"
	"mediadiary-server/internal/migrate"
	"mediadiary-server/internal/repos"
	"mediadiary-server/internal/server"
	"mediadiary-server/pkg/cache"
	pkgdb "mediadiary-server/pkg/db"
	"mediadiary-server/pkg/signer"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Init("mediadiary-server", "info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init("mediadiary-server", cfg.LogLevel, cfg.LogPretty)
	if cfg.GeneratedCursorKey {
		log.Warn().Msg("CURSOR_SECRET not set; cursors will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init failed")
	}
	defer closeStore()

	var c cache.Cache
	if addr := cfg.ValkeyAddr; addr != "" {
		vc, err := cache.NewValkey(addr, cfg.ValkeyPassword)
		if err != nil {
			log.Error().Err(err).Msg("valkey connect failed, using in-memory cache")
			c = cache.NewInMemory()
		} else {
			defer vc.Close()
			c = vc
		}
	} else {
		c = cache.NewInMemory()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	engine := diary.New(repos.New(store), diary.WithMetrics(m))
	queue := jobs.NewAuditQueue()
	api := server.New(engine, c, signer.NewHMAC(cfg.CursorKey),
		server.WithMetrics(m, reg),
		server.WithCORS(cfg.CORSAllowedOrigins),
		server.WithMutationHook(queue.Mark),
	)

	jobs.StartAudit(ctx, engine, queue, cfg.AuditInterval, m)

	g, gctx := errgroup.WithContext(ctx)
	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("driver", cfg.StoreDriver).Str("env", cfg.Env).Msg("listening")
		if err := server.StartHTTP(gctx, addr, api.Router()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("shut down")
}

// openStore migrates and opens the configured document store.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := migrate.UpPostgres(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := pkgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	case config.DriverSQLite:
		if err := migrate.UpSQLite(cfg.SQLitePath); err != nil {
			return nil, nil, err
		}
		db, err := pkgdb.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s := sqlite.New(db)
		return s, func() { _ = s.Close() }, nil
	default:
		log.Warn().Msg("memory store selected; entries are lost on exit")
		return docstore.NewMemory(), func() {}, nil
	}
}
