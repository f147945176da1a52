package main

import (
	"context"
	"net"
	"net/http"

	"github.com/fanfiq/fanfiq/pkg/config"
	"github.com/fanfiq/fanfiq/pkg/database"
	"github.com/fanfiq/fanfiq/pkg/migrations"
	"github.com/fanfiq/fanfiq/pkg/resultcache"
	"github.com/fanfiq/fanfiq/pkg/server"
	"github.com/fanfiq/fanfiq/pkg/version"
	"github.com/fanfiq/fanfiq/pkg/worker"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting fanfiq", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	var cache *resultcache.Cache
	var store *resultcache.RedisStore
	if cfg.SearchCacheEnabled {
		store, err = resultcache.NewRedisStore(cfg)
		if err != nil {
			log.Err(err).Fatal("redis config error")
		}
		// Searches run uncached until redis becomes reachable.
		if err := store.Ping(ctx); err != nil {
			log.Err(err).Warn("redis unreachable")
		}
		cache = resultcache.New(store, cfg.SearchCacheTTL)
		log.Info("search cache enabled", logger.Data{"addrs": cfg.RedisAddrs, "ttl": cfg.SearchCacheTTL.String()})
	}

	wrkr := worker.New(cfg, db)

	srv, err := server.New(cfg, db, cache)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started", logger.Data{"processes": cfg.WorkerProcesses})

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	if store != nil {
		store.Close()
		log.Info("redis closed")
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
