package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"semillero-hub/config"
	"semillero-hub/services"
)

// One-shot variant of the scheduled inactivity sweep, for manual runs and
// external schedulers (Kubernetes CronJob, systemd timer).
func main() {
	dryRun := flag.Bool("dry-run", false, "count users that would be flagged without updating them")
	flag.Parse()

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}

	sweep := services.NewSweepService(db, logging, cfg.InactivityDays)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *dryRun {
		count, err := sweep.CountStaleUsers(ctx)
		if err != nil {
			logging.Fatal("Dry run failed", zap.Error(err))
		}
		logging.Info("Dry run complete", zap.Int64("would_flag", count))
		return
	}

	count, err := sweep.MarkInactiveUsers(ctx)
	if err != nil {
		logging.Fatal("Inactivity sweep failed", zap.Error(err))
	}
	logging.Info("Inactivity sweep complete", zap.Int64("flagged_users", count))
}
