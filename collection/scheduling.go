package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/majak-app/candlesync/reconcile"
)

// Scheduler fires the pipeline on a cron expression. Each tick is one
// independent run, overlapping ticks fail fast on the reconciler's busy
// guard and the missed tick is simply skipped.
type Scheduler struct {
	orch     Orchestrator
	cronSpec string
	logger   *log.Entry
}

func NewScheduler(orch Orchestrator, cronSpec string, logger *log.Entry) Scheduler {
	return Scheduler{
		orch:     orch,
		cronSpec: cronSpec,
		logger:   logger,
	}
}

// this function will block until the context is done
func (s Scheduler) Watch(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.cronSpec, func() {
		count, err := s.orch.RunIngestion(ctx)
		if errors.Is(err, reconcile.ErrSyncBusy) {
			s.logger.Warn("Previous run still active, skipping this tick")
			return
		}
		if err != nil {
			s.logger.Error("Scheduled ingestion failed ", err)
			return
		}
		s.logger.Infof("Scheduled ingestion committed %d items", count)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.cronSpec, err)
	}

	s.logger.Infof("Watching on cron expression %q", s.cronSpec)
	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	return ctx.Err()
}
