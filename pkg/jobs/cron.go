package jobs

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron     *cron.Cron
	snapshot *SnapshotJob
	logger   *log.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(snapshot *SnapshotJob, logger *log.Logger) *CronManager {
	if logger == nil {
		logger = log.Default()
	}

	return &CronManager{
		cron:     cron.New(),
		snapshot: snapshot,
		logger:   logger,
	}
}

// SetupJobs configures all scheduled jobs
func (cm *CronManager) SetupJobs() error {
	cm.logger.Println("Setting up cron jobs...")

	// Daily at 2 AM: refresh the LTV snapshot gauges
	_, err := cm.cron.AddFunc("0 2 * * *", func() {
		cm.logger.Println("🕐 Running daily LTV snapshot job...")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := cm.snapshot.Run(ctx); err != nil {
			cm.logger.Printf("❌ LTV snapshot job failed: %v", err)
			return
		}

		cm.logger.Println("✅ Daily LTV snapshot job completed")
	})
	if err != nil {
		return err
	}

	// Hourly: keep the unscoped report cache warm
	_, err = cm.cron.AddFunc("0 * * * *", func() {
		cm.logger.Println("🕐 Warming report cache...")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := cm.snapshot.WarmReportCache(ctx); err != nil {
			cm.logger.Printf("⚠️  Report cache warm failed: %v", err)
			return
		}

		cm.logger.Println("✅ Report cache warmed")
	})
	if err != nil {
		return err
	}

	cm.logger.Println("✅ Cron jobs configured successfully")
	cm.logger.Println("  - Daily at 2 AM: LTV snapshot")
	cm.logger.Println("  - Hourly: report cache warm")

	return nil
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.logger.Println("🚀 Starting cron scheduler...")
	cm.cron.Start()
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	cm.logger.Println("🛑 Stopping cron scheduler...")
	cm.cron.Stop()
}

// GetSnapshot returns the snapshot job (for manual triggers)
func (cm *CronManager) GetSnapshot() *SnapshotJob {
	return cm.snapshot
}
