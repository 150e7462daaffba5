package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"

	"livechat-server/handover-api/internal/domain/inactivity"
	"livechat-server/handover-api/internal/infrastructure/logger"
	"livechat-server/handover-api/internal/utils/platformerrors"
)

// CronJobTimeout bounds each sweep execution.
const CronJobTimeout = 5 * time.Minute

type Crontab struct {
	ctab    *crontab.Crontab
	monitor *inactivity.Monitor
}

func NewCrontab(monitor *inactivity.Monitor) *Crontab {
	return &Crontab{
		ctab:    crontab.New(),
		monitor: monitor,
	}
}

func (c *Crontab) Run(ctx context.Context) error {
	log := logger.GetLogger()

	// execute once on server start
	c.runSweep(ctx)

	// the monitor itself skips overlapping sweeps
	if err := c.ctab.AddJob("* * * * *", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.runSweep(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add inactivity sweep job")
	}
	log.Info().Msg("Inactivity sweep scheduled: every minute")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) runSweep(ctx context.Context) {
	log := logger.GetLogger()
	if err := c.monitor.CheckInactiveConversations(ctx); err != nil {
		log.Error().Err(err).Msg("Inactivity sweep failed")
	}
}
