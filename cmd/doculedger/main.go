package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/doculedger/doculedger/internal/app"
	"github.com/doculedger/doculedger/internal/docflow"
	"github.com/doculedger/doculedger/internal/documents"
	"github.com/doculedger/doculedger/internal/inventory"
	"github.com/doculedger/doculedger/internal/platform/cache"
	"github.com/doculedger/doculedger/internal/platform/db"
	"github.com/doculedger/doculedger/internal/shared"
	"github.com/doculedger/doculedger/internal/suppliers"
	"github.com/doculedger/doculedger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	supplierRepo := suppliers.NewRepository(pool)
	supplierService := suppliers.NewService(supplierRepo)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)

	documentRepo := documents.NewRepository(pool)

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	committer := docflow.NewCommitter(logger, documentRepo, queueClient, idempotencyStore)
	flowStore := docflow.NewRedisFlowStore(redisClient, cfg.FlowTTL)
	flowService := docflow.NewService(logger, flowStore, supplierService, inventoryService, committer, auditLogger)
	flowHandler := docflow.NewHandler(logger, flowService)
	stagingHandler := documents.NewHandler(logger, documentRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		FlowHandler:    flowHandler,
		StagingHandler: stagingHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
