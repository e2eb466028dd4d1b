package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/data"
	"github.com/shiveeg1/fund-agent/data/cache"
	"github.com/shiveeg1/fund-agent/data/repository/postgres"
	"github.com/shiveeg1/fund-agent/data/session"
	"github.com/shiveeg1/fund-agent/internal/externalApi/amfiApi"
	"github.com/shiveeg1/fund-agent/internal/externalApi/geminiApi"
	"github.com/shiveeg1/fund-agent/internal/externalApi/mfApi"
	"github.com/shiveeg1/fund-agent/internal/externalApi/sheetsApi"
	"github.com/shiveeg1/fund-agent/internal/reportGenerator/xlsxGenerator"
	"github.com/shiveeg1/fund-agent/internal/scheduler"
	"github.com/shiveeg1/fund-agent/internal/service/portfolioService"
	"github.com/shiveeg1/fund-agent/internal/statementParser/camsParser"
	"github.com/shiveeg1/fund-agent/internal/tgbot"
	"github.com/shiveeg1/fund-agent/internal/transport/telegram"
	"github.com/shiveeg1/fund-agent/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	amfiApiClient := amfiApi.New(cfg)
	mfApiClient := mfApi.New(cfg)
	sheetsApiClient := sheetsApi.New(ctx, cfg)

	geminiApiClient, err := geminiApi.New(ctx, cfg)
	if err != nil {
		slog.Error("failed creating gemini client", slog.String("err", err.Error()))
		panic(err)
	}

	parser := camsParser.New()
	reportGenerator := xlsxGenerator.New()

	portfolioSrv := portfolioService.New(
		cfg,
		pgRepo,
		parser,
		amfiApiClient,
		mfApiClient,
		redisCache,
		sheetsApiClient,
		geminiApiClient,
		reportGenerator,
	)

	tgController := telegram.NewController(portfolioSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	sched := scheduler.New(cfg.Jobs.Timezone)
	sched.NewCrontabJob("daily workflow", func(jobCtx context.Context) error {
		runCtx := utils.CreateCtxWithRqID()
		report, out := portfolioSrv.RunWorkflow(runCtx)
		return tgBot.SendRunSummary(runCtx, report, out)
	}, cfg.Jobs.WorkflowCrontab, cfg.Jobs.RunWorkflowAtStart)
	sched.NewIntervalJob("nav refresh", func(jobCtx context.Context) error {
		runCtx := utils.CreateCtxWithRqID()
		_, err := portfolioSrv.RefreshNavs(runCtx)
		return err
	}, cfg.Jobs.NavRefreshInterval, false)
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
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
