package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesmoraless/stockr/config"
	"github.com/jamesmoraless/stockr/data"
	"github.com/jamesmoraless/stockr/data/cache"
	"github.com/jamesmoraless/stockr/data/session"
	"github.com/jamesmoraless/stockr/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/jamesmoraless/stockr/internal/externalApi/identityApi"
	"github.com/jamesmoraless/stockr/internal/externalApi/stockrApi"
	"github.com/jamesmoraless/stockr/internal/reportGenerator/xlsxGenerator"
	"github.com/jamesmoraless/stockr/internal/scheduler"
	"github.com/jamesmoraless/stockr/internal/service/dashboardService"
	"github.com/jamesmoraless/stockr/internal/tgbot"
	httptransport "github.com/jamesmoraless/stockr/internal/transport/http"
	"github.com/jamesmoraless/stockr/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	stockrApiClient := stockrApi.New(cfg)
	identityApiClient := identityApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	dashboardSrv := dashboardService.New(
		stockrApiClient,
		redisCache,
		redisSession,
		reportGenerator,
		googleCloudStorage,
		identityApiClient,
	)

	sched := scheduler.New()
	sched.NewIntervalJob("warm quotes cache", dashboardSrv.WarmQuotesCache, cfg.Jobs.WarmQuotesCacheInterval, true)
	sched.NewCrontabJob("cleanup drive reports", dashboardSrv.CleanupReports, cfg.Jobs.DriveCleanupCrontab, false)
	sched.Start()
	defer sched.Stop()

	httpController := httptransport.NewController(dashboardSrv)
	httpServer := httptransport.NewServer(cfg, httpController)
	go func() {
		if err := httpServer.Run(); err != nil {
			slog.Error("http server stopped", slog.String("err", err.Error()))
		}
	}()
	slog.Info("http server started", slog.Int("port", cfg.HTTP.Port))

	tgController := telegram.NewController(dashboardSrv, redisSession, identityApiClient)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
