// Command server runs the calculation engine's HTTP surface: Calculate,
// Sweep and EmitScript over the reference Postgres-backed GraphRepository.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parascope/calcengine/internal/app/calcsvc"
	"github.com/parascope/calcengine/internal/app/sweepsvc"
	"github.com/parascope/calcengine/internal/app/worker"
	"github.com/parascope/calcengine/internal/config"
	"github.com/parascope/calcengine/internal/infrastructure/storage"
	"github.com/parascope/calcengine/internal/infrastructure/transport/rest"
	"github.com/parascope/calcengine/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logging.New(cfg.Logging)
	logging.SetDefault(appLogger)

	appLogger.Info("starting calcengine server",
		"version", "1.0.0",
		"port", cfg.Server.Port,
	)

	dbConfig := &storage.Config{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MinConnections,
		ConnMaxLifetime: cfg.Database.MaxConnLifetime,
		ConnMaxIdleTime: cfg.Database.MaxIdleTime,
		Debug:           cfg.Logging.Level == "debug",
	}

	db, err := storage.NewDB(dbConfig)
	if err != nil {
		appLogger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	appLogger.Info("database connected", "max_conns", cfg.Database.MaxConnections)

	repo := storage.NewPostgresGraphRepository(db)

	pool, err := worker.NewPool(cfg.WorkerPool)
	if err != nil {
		appLogger.Error("failed to initialize worker pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	appLogger.Info("worker pool initialized", "worker_count", cfg.WorkerPool.WorkerCount)

	calcService := calcsvc.New(repo, pool, cfg.WorkerPool, cfg.Sandbox)
	sweepService := sweepsvc.New(repo, pool, cfg.Sandbox)

	ready := func(c *gin.Context) error {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		return storage.Ping(ctx, db)
	}

	router := rest.NewRouter(calcService, sweepService, repo, ready, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		appLogger.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		appLogger.Info("server shutdown initiated", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			appLogger.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				appLogger.Error("server close failed", "error", err)
			}
		}

		appLogger.Info("server stopped")
	}
}
