package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/batch-sub-translator/pkg/icron"
)

// SummaryHandler receives the summary of every scheduled run.
type SummaryHandler func(Summary)

// Schedule runs the batch over root on the cron expression until ctx is
// done. A trigger that fires while a run is in progress joins that run
// instead of starting a second one.
func (s *Scheduler) Schedule(ctx context.Context, root, cronExpr string, onSummary SummaryHandler) error {
	if _, err := icron.Parse(cronExpr); err != nil {
		return WrapError(err, ErrConfig, "invalid cron expression").WithContext("cron_expr", cronExpr)
	}

	var group singleflight.Group
	runFunc := func() {
		_, err, shared := group.Do(root, func() (any, error) {
			summary, err := s.run(ctx, root, "cron")
			if err != nil {
				return nil, err
			}
			if onSummary != nil {
				onSummary(summary)
			}
			return summary, nil
		})
		if err != nil {
			s.logger.Error("Scheduled run in %s failed: %v", root, err)
		}
		if shared {
			s.logger.Debug("Overlapping trigger joined the run in progress")
		}
		s.logNextTrigger(cronExpr)
	}

	c := cron.New()
	if _, err := c.AddFunc(cronExpr, runFunc); err != nil {
		return WrapError(err, ErrConfig, "failed to schedule run")
	}

	s.logger.Info("Scheduled translation of %s with %q", root, cronExpr)
	s.logNextTrigger(cronExpr)
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) logNextTrigger(cronExpr string) {
	info, err := icron.GetTriggerInfo(cronExpr, time.Now())
	if err != nil {
		return
	}
	s.logger.Info("Next run at %s (in %s)", info.Next.Format(time.RFC3339), info.TimeUntilNext.Round(time.Second))
}
