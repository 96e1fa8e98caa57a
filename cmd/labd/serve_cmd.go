package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"

	"lab-allocation-backend/internal/api"
	"lab-allocation-backend/internal/auth"
	"lab-allocation-backend/internal/db"
	"lab-allocation-backend/internal/engine"
	"lab-allocation-backend/internal/metrics"
	"lab-allocation-backend/internal/notification"
	"lab-allocation-backend/internal/store"
	"lab-allocation-backend/internal/view"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and dashboard watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			logger.WithField("path", path).Info("configuration loaded")

			gormDB, err := db.Init(&cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			appStore := store.NewGormStore(gormDB, cfg.Database.OpTimeout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Workers outlive ctx; on shutdown the queue is closed and drained, and
			// cancelling workerCtx only bounds how long that may take.
			workerCtx, cancelWorkers := context.WithCancel(context.Background())
			defer cancelWorkers()

			var (
				notifier       engine.Notifier
				pool           *notification.WorkerPool
				webpushOptions *webpush.Options
			)
			if cfg.Push.Enabled() {
				webpushOptions = &webpush.Options{
					VAPIDPublicKey:  cfg.Push.PublicKey,
					VAPIDPrivateKey: cfg.Push.PrivateKey,
					Subscriber:      cfg.Push.Subject,
					TTL:             cfg.Push.TTL,
				}
				pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions, logger)
				pool.Start(workerCtx)
				notifier = pool
			} else {
				logger.Warn("VAPID keys not configured, push notifications disabled")
				notifier = notification.NoopNotifier{Log: logger}
			}

			cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
			cacheStore := cache.New(cacheTTL, 2*cacheTTL)

			projector := view.NewProjector(appStore, logger, cfg.Database.OpTimeout)
			projector.Subscribe(metrics.ObserveSnapshot)
			projector.Subscribe(func(view.Snapshot) { cacheStore.Flush() })

			eng := engine.New(appStore, projector, notifier, cfg.Inventory, logger)
			created, err := eng.Seed(ctx)
			if err != nil {
				return fmt.Errorf("failed to seed inventory: %w", err)
			}
			if created > 0 {
				logger.WithField("created", created).Info("seeded lab inventory")
			}
			projector.Publish()

			if cfg.Watcher.Enabled {
				watcher := view.NewWatcher(appStore, projector, cfg.Watcher.Interval, logger)
				go watcher.Run(ctx)
			}

			handler := api.NewHandler(eng, appStore, projector, webpushOptions)
			router := api.NewRouter(handler, auth.NewResolver(cfg.Auth.JWTSecret), cacheStore, cfg.Server)
			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
				Handler: router,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("HTTP server ListenAndServe: %w", err)
				}
			case <-ctx.Done():
				logger.Info("shutdown signal received, stopping services")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("HTTP server Shutdown: %w", err)
			}

			projector.Wait()
			if pool != nil {
				pool.Close()
				drainDeadline := time.AfterFunc(10*time.Second, cancelWorkers)
				pool.Wait()
				drainDeadline.Stop()
			}

			logger.Info("server gracefully stopped")
			return nil
		},
	}
}
