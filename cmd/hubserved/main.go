package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/dawikk/hubbridge/internal/config"
	"github.com/dawikk/hubbridge/internal/daemon"
	"github.com/dawikk/hubbridge/internal/engine"
	"github.com/dawikk/hubbridge/internal/history"
	"github.com/dawikk/hubbridge/internal/obslog"
	"github.com/dawikk/hubbridge/internal/session"
	"github.com/dawikk/hubbridge/internal/store"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	spawnCtx, spawnCancel := context.WithTimeout(context.Background(), 15*time.Second)
	oracle, err := engine.NewProcess(spawnCtx, cfg.EnginePath,
		engine.WithArgs(cfg.EngineArgs...),
		engine.WithWorkDir(cfg.EngineDir),
	)
	spawnCancel()
	if err != nil {
		logger.Fatal("engine spawn failed", zap.String("path", cfg.EnginePath), zap.Error(err))
	}
	ident := oracle.Identity()
	logger.Info("engine attached",
		zap.String("name", ident.Name),
		zap.String("version", ident.Version),
		zap.String("author", ident.Author))

	broker := daemon.NewBroker()
	sess, err := session.New(oracle,
		session.Config{QueueSize: cfg.QueueSize, CatalogPath: cfg.CatalogPath},
		session.WithEventCallback(broker.Publish),
	)
	if err != nil {
		logger.Fatal("session init failed", zap.Error(err))
	}

	var cache *store.Cache
	if cfg.RedisURL != "" {
		cache, err = store.NewCache(cfg.RedisURL, time.Duration(cfg.CacheTTLSec)*time.Second)
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		logger.Info("analysis cache enabled")
	}

	var repo *history.Repository
	if cfg.DatabaseURL != "" {
		repo, err = history.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database init failed", zap.Error(err))
		}
		schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(schemaCtx)
		schemaCancel()
		if err != nil {
			logger.Fatal("schema init failed", zap.Error(err))
		}
		logger.Info("search history enabled")
	}

	// Warm the engine up front so the first request does not pay init.
	if _, err := sess.Submit("set-param name=variant value=" + cfg.Variant); err != nil {
		logger.Warn("variant submit failed", zap.Error(err))
	}
	if _, err := sess.Submit("init"); err != nil {
		logger.Fatal("init submit failed", zap.Error(err))
	}
	if !sess.WaitReady(time.Duration(cfg.ReadyTimeoutSec) * time.Second) {
		logger.Fatal("engine never became ready", zap.String("last_error", sess.LastError()))
	}
	logger.Info("session ready", zap.String("variant", cfg.Variant))

	srv := daemon.NewServer(sess, ident, daemon.Config{
		Variant:      cfg.Variant,
		AnalyzeDepth: cfg.AnalyzeDepth,
		HistoryLimit: cfg.HistoryLimit,
	}, broker, cache, repo)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	sess.Submit("quit")
	sess.Shutdown()
	_ = oracle.Close()
	if cache != nil {
		_ = cache.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
}
