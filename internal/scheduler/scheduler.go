// Package scheduler re-warms the district price cache on a cron schedule so
// the dashboard's default year view never pays the recompute cost.
package scheduler

import (
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"presale/server/config"
	"presale/server/internal/rocdate"
	"presale/server/internal/stats"
)

// Scheduler runs periodic stats refreshes for every supported region.
type Scheduler struct {
	aggregator *stats.Aggregator
	logger     *logrus.Logger
	cron       *cron.Cron
}

func NewScheduler(aggregator *stats.Aggregator, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Scheduler{
		aggregator: aggregator,
		logger:     logger,
		cron:       cron.New(),
	}
}

// Start registers the refresh job under the given cron spec and begins
// running it.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RefreshAll); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Stats refresh scheduler started")
	return nil
}

// RefreshAll recomputes the current ROC year window for every region. A
// failing region is logged and skipped; the job never brings the process
// down.
func (s *Scheduler) RefreshAll() {
	startDate, endDate := rocdate.YearWindow(time.Now())
	for _, region := range config.SupportedRegions {
		if _, err := s.aggregator.Refresh(region, startDate, endDate); err != nil {
			s.logger.WithError(err).WithField("region", region.String()).Error("Scheduled stats refresh failed")
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"region":    region.String(),
			"startDate": startDate,
			"endDate":   endDate,
		}).Info("Scheduled stats refresh completed")
	}
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
