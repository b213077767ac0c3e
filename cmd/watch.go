/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/majak-app/candlesync/collection"
	"github.com/majak-app/candlesync/collection/services/candle"
	"github.com/majak-app/candlesync/config"
	"github.com/majak-app/candlesync/data"
	"github.com/majak-app/candlesync/reconcile"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Runs ingestions on the configured cron schedule",
	Long: `Blocks and runs one ingestion per cron tick until interrupted.
A tick which fires while the previous run is still going is skipped`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.WithFields(log.Fields{
			"job": "watch",
		})
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			logger.Error("Could not load config ", err)
			os.Exit(1)
		}

		dbPool, err := data.NewPool(ctx)
		if err != nil {
			logger.Error("Could not connect to the database ", err)
			os.Exit(1)
		}

		extractor := candle.NewExtractorFromConfig(cfg.Source, logger)
		reconciler := reconcile.New(reconcile.NewPgStore(dbPool), logger)
		orch := collection.NewOrchestrator(extractor, reconciler, logger)

		scheduler := collection.NewScheduler(orch, cfg.Scheduler.CronExpression, logger)
		if err := scheduler.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Watch stopped ", err)
			os.Exit(1)
		}
		logger.Info("Watch stopped")
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
