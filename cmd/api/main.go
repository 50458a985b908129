package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rajeshk/taskhub/internal/cache"
	"github.com/rajeshk/taskhub/internal/config"
	"github.com/rajeshk/taskhub/internal/db"
	httpx "github.com/rajeshk/taskhub/internal/http"
	"github.com/rajeshk/taskhub/internal/observability"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing, only when an exporter endpoint is configured

	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "taskhub", cfg.OTELEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	schemaCtx, cancel := config.WithTimeout(10 * time.Second)
	err = db.EnsureSchema(schemaCtx, pool)
	cancel()

	if err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	// task-list cache: redis when configured, in-process otherwise

	var lists cache.TaskLists = cache.NewMemory(5 * time.Second)

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, 5*time.Second)

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		err = rc.Ping(pingCtx)
		cancel()

		if err != nil {
			log.Error("redis unreachable, falling back to in-process cache", "err", err)
		} else {
			defer rc.Close()
			lists = rc
		}
	}

	router := httpx.NewRouter(log, pool, cfg, lists)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
