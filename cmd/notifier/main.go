package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pbx-notifier/internal/audit"
	"pbx-notifier/internal/auth"
	"pbx-notifier/internal/config"
	"pbx-notifier/internal/notify"
	"pbx-notifier/internal/pbx"
	"pbx-notifier/internal/pipeline"
	"pbx-notifier/internal/reporting"
	"pbx-notifier/internal/scheduler"
	"pbx-notifier/internal/telegram"
	"pbx-notifier/internal/watermark"
	"pbx-notifier/pkg/logger"
	"pbx-notifier/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real deployments use the process environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Error("timezone load failed", "err", err, "timezone", cfg.App.Timezone)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	source := pbx.NewClient(cfg.PBX.AuthURL, cfg.PBX.HistoryURL, cfg.PBX.AuthKey,
		pbx.WithSessionCache(pbx.NewRedisSessionCache(rdb, cfg.PBX.SessionTTL)))

	channel, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChannelID)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	pipe := pipeline.New(pipeline.Params{
		Source:    source,
		Channel:   channel,
		Store:     watermark.NewPostgresStore(db, "pbx_calls"),
		Formatter: notify.NewFormatter(loc),
		Reports:   reporting.NewService(source),
		Audits:    audit.NewService(audit.NewPostgresRepo(db)),
		Logger:    log,
		Location:  loc,
		Lookback:  cfg.Poller.Lookback,
	})

	// The immediate tick on Start doubles as the catch-up run for calls
	// that finished while the process was down.
	sched, err := scheduler.New(cfg.Poller.Interval, log, func(ctx context.Context) {
		runCycle(ctx, log, pipe)
	})
	if err != nil {
		log.Error("scheduler init failed", "err", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, cfg, pipe, authManager, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("notifier listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

// runCycle is the shared entry point for every trigger: poll tick,
// startup catch-up and webhook push. A busy pipeline means another
// trigger got there first, which is fine.
func runCycle(ctx context.Context, log *slog.Logger, pipe *pipeline.Pipeline) {
	res, err := pipe.RunDeliveryCycle(ctx)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		log.Debug("delivery cycle already in flight, skipping")
	case err != nil:
		log.Error("delivery cycle failed", "err", err)
	case res.Delivered > 0:
		log.Info("delivery cycle done",
			"delivered", res.Delivered, "with_audio", res.WithAudio, "fallbacks", res.Fallbacks)
	}
}
