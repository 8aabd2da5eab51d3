package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cardrewards/internal/cli"
	"cardrewards/internal/core"
	apphttp "cardrewards/internal/http"
	"cardrewards/internal/rewards"
	"cardrewards/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	cat := cli.InitCatalog(logger, cfg.CatalogDir)

	milesValue := cfg.MilesValueSGD
	if milesValue <= 0 {
		milesValue = core.DefaultMilesValue
	}
	rewardSvc := services.NewRewardService(cat, rewards.NewEngine(milesValue))

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	amqpClient := cli.InitAMQP(logger, cfg)

	// Close releases both the repository and the AMQP connection.
	spendingSvc := services.NewSpendingService(repo, amqpClient)
	defer spendingSvc.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
	}, rewardSvc, spendingSvc)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting cardrewards server", "port", cfg.Port, "cards", cat.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
