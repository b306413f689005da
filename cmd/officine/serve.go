package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"officine/internal/infra"
	"officine/internal/realtime"
	"officine/internal/router"
	"officine/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the real-time hub and the background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		skipMigrate, _ := cmd.Flags().GetBool("skip-migrate")
		return serve(cmd.Context(), skipMigrate)
	},
}

func init() {
	serveCmd.Flags().Bool("skip-migrate", false, "do not apply pending migrations on start")
}

func serve(parent context.Context, skipMigrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if !skipMigrate {
		if err := infra.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Redis is optional: without it there is no SKU cache, no e-mail queue
	// and no cross-instance relay.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache, queue and relay")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	uploads, err := infra.NewUploadStore(cfg.UploadDir, cfg.MaxUploadMB)
	if err != nil {
		return err
	}
	mailer := infra.NewMailer(cfg)

	hub := realtime.NewHub()
	var events realtime.Publisher = hub
	if rdb != nil {
		relay := realtime.NewRedisRelay(rdb, cfg.RealtimeChannel, hub)
		events = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("relay stopped")
			}
		}()

		pool := worker.NewPool(rdb)
		if mailer.Enabled() {
			pool.Handle(worker.QueueEmail, worker.NewEmailWorker(mailer).Process)
		}
		pool.Start(ctx, cfg.WorkerPoolSize)
	}

	deps := router.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Hub:     hub,
		Events:  events,
		Mailer:  mailer,
		Uploads: uploads,
	}
	services := router.NewServices(deps)
	limiters := router.NewLimiters()
	limiters.General.StartPurge(ctx, 5*time.Minute)
	limiters.Login.StartPurge(ctx, 5*time.Minute)
	worker.StartLowStockCron(ctx, services.Stock, time.Duration(cfg.LowStockScanMinutes)*time.Minute)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(deps, services, limiters),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("officine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
