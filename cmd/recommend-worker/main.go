package main

import (
	"context"
	"errors"
	"time"

	"cardrewards/internal/amqp"
	"cardrewards/internal/cli"
	"cardrewards/internal/core"
	"cardrewards/internal/export"
	"cardrewards/internal/rewards"
	"cardrewards/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting recommend-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	cat := cli.InitCatalog(logger, cfg.CatalogDir)

	milesValue := cfg.MilesValueSGD
	if milesValue <= 0 {
		milesValue = core.DefaultMilesValue
	}
	rewardSvc := services.NewRewardService(cat, rewards.NewEngine(milesValue))

	// Sheets export is optional; recommendations are always persisted to
	// SQLite regardless.
	var exporter export.ReportWriter
	if cfg.SheetsExportEnabled() {
		client, err := export.NewGoogleFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Sheets export", "error", err)
		} else {
			exporter = client
			logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	} else {
		logger.Info("Sheets export disabled")
	}

	processor := services.NewRecommendProcessor(repo, rewardSvc, exporter, services.RecommendProcessorConfig{
		PollInterval: cfg.RecommendInterval,
		BatchSize:    cfg.RecommendBatchSize,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := processor.Stop(stopCtx); err != nil {
			logger.Error("Processor stop error", "error", err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start recommend processor", "error", err)
		return
	}

	// The AMQP consumer gives low-latency processing of fresh spendings;
	// the polling processor above catches anything the broker missed.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
		go func() {
			handler := func(msg *amqp.RecommendMessage) error {
				return processor.ProcessSpending(ctx, msg.SpendingID)
			}
			if err := amqpClient.ConsumeRecommend(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption stopped", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
