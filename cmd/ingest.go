/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/majak-app/candlesync/collection"
	"github.com/majak-app/candlesync/collection/services/candle"
	"github.com/majak-app/candlesync/config"
	"github.com/majak-app/candlesync/data"
	"github.com/majak-app/candlesync/reconcile"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Runs one ingestion of the weekly timetable",
	Long: `Fetches the weekly timetable from the source, extracts every valid
row, and atomically replaces the catalog with the result`,
	Run: func(cmd *cobra.Command, args []string) {
		log.SetLevel(log.TraceLevel)
		logger := log.WithFields(log.Fields{
			"job": "ingest",
		})
		ctx := context.Background()

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

		count, err := orch.RunIngestion(ctx)
		if err != nil {
			logger.Error("Ingestion failed ", err)
			os.Exit(1)
		}
		logger.Infof("Ingestion committed %d items", count)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
