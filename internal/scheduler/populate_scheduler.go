package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/gamecatalog-backend/internal/app/service"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// PopulateScheduler runs the populate batch on a cron schedule
type PopulateScheduler struct {
	cron     *cron.Cron
	populate service.PopulateService
	spec     string
	params   map[string]string
	timeout  time.Duration
}

// NewPopulateScheduler creates a scheduler for spec (standard 5-field cron or
// a descriptor such as "@hourly"). Overlapping runs inside this process are skipped.
func NewPopulateScheduler(populate service.PopulateService, spec string, params map[string]string, timeout time.Duration) *PopulateScheduler {
	return &PopulateScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		populate: populate,
		spec:     spec,
		params:   params,
		timeout:  timeout,
	}
}

// Start registers the job and starts the cron loop
func (s *PopulateScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		logger.Error("Failed to add cron job for populate", err, map[string]interface{}{
			"schedule": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Populate scheduler started", map[string]interface{}{
		"schedule": s.spec,
		"params":   s.params,
	})
	return nil
}

// Stop stops the scheduler and waits for a running batch to finish
func (s *PopulateScheduler) Stop() {
	logger.Info("Stopping populate scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Populate scheduler stopped")
}

func (s *PopulateScheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.Info("Starting scheduled populate batch")

	report, err := s.populate.Populate(ctx, s.params)
	if err != nil {
		if errors.Is(err, service.ErrBatchInProgress) {
			logger.Info("Skipping scheduled populate, another batch is running")
			return
		}
		logger.Error("Scheduled populate batch could not start", err)
		return
	}

	logger.Info("Scheduled populate batch finished", map[string]interface{}{
		"run_id":        report.RunID,
		"status":        report.Status,
		"games_created": report.GamesCreated,
		"games_failed":  report.GamesFailed,
	})
}
