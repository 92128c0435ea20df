package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/classmeet/internal/adapters/cache"
	router "github.com/dkeye/classmeet/internal/adapters/http"
	"github.com/dkeye/classmeet/internal/adapters/storage"
	"github.com/dkeye/classmeet/internal/app"
	"github.com/dkeye/classmeet/internal/app/orch"
	"github.com/dkeye/classmeet/internal/config"
	"github.com/dkeye/classmeet/internal/core"
	"github.com/dkeye/classmeet/internal/meeting"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := storage.Open(storage.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		AutoMigrate:  cfg.Database.AutoMigrate,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	opts := []meeting.Option{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		log.Info().Str("module", "main").Str("addr", cfg.Redis.Addr).Msg("redis connected")
		opts = append(opts, meeting.WithCache(cache.NewRedisMeetingCache(rdb, "meet:", cfg.Redis.TTL)))
	}
	svc := meeting.NewService(storage.NewMeetingRepository(db), storage.NewClassroomDirectory(db), opts...)

	policy, err := app.ParsePolicy(cfg.Signal.SlowPeer)
	if err != nil {
		return err
	}
	o := &orch.Orchestrator{
		Rooms:       core.NewRoomTable(),
		Meetings:    svc,
		Registry:    app.NewRegistry(),
		Policy:      policy,
		Limiter:     app.NewJoinRateLimiter(cfg.Signal.JoinRate, cfg.Signal.JoinBurst),
		TokenMaxAge: cfg.Signal.TokenMaxAge,
		VerifyHost:  cfg.Signal.VerifyHost,
	}

	r := router.SetupRouter(ctx, cfg, o, svc)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("classmeet server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		o.Shutdown()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})
	return g.Wait()
}
