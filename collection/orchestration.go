package collection

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/collection/services"
)

// Source is one timetable origin the pipeline can extract from
type Source interface {

	// name of the source for logging
	Name() string

	// extract the whole week into one immutable snapshot
	ExtractWeeklySchedule(ctx context.Context) (services.ExtractedSchedule, error)
}

// Synchronizer atomically replaces the persisted catalog with a snapshot
type Synchronizer interface {
	Synchronize(ctx context.Context, snapshot services.ExtractedSchedule) (int, error)
}

// Orchestrator runs the ingestion pipeline end to end, one logical task
// per trigger. Extraction failures and sync failures abort the run, row
// rejections were already handled inside the source and never get here.
type Orchestrator struct {
	source Source
	sync   Synchronizer
	logger *log.Entry
}

func NewOrchestrator(source Source, sync Synchronizer, logger *log.Entry) Orchestrator {
	return Orchestrator{
		source: source,
		sync:   sync,
		logger: logger,
	}
}

// RunIngestion is the zero argument trigger: extract once, replace the
// catalog once, report the committed count.
func (o Orchestrator) RunIngestion(ctx context.Context) (int, error) {
	logger := o.logger.WithField("source", o.source.Name())
	logger.Info("Starting ingestion run")

	snapshot, err := o.source.ExtractWeeklySchedule(ctx)
	if err != nil {
		logger.Error("Extraction failed ", err)
		return 0, err
	}
	logger.Infof("Extracted %d items (%d rows rejected)", len(snapshot.Items), len(snapshot.Rejections))

	count, err := o.sync.Synchronize(ctx, snapshot)
	if err != nil {
		logger.Error("Synchronization failed ", err)
		return 0, err
	}

	logger.WithFields(log.Fields{
		"count":        count,
		"extracted_at": snapshot.ExtractedAt,
		"source_url":   snapshot.SourceURL,
	}).Info("Finished ingestion run")
	return count, nil
}
