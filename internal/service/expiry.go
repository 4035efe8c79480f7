package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpirySweeper периодически помечает просроченные объявления.
type ExpirySweeper struct {
	cron   *cron.Cron
	svc    *Service
	logger *zap.Logger
}

// NewExpirySweeper создаёт планировщик с cron-расписанием schedule (UTC).
func NewExpirySweeper(svc *Service, schedule string, logger *zap.Logger) (*ExpirySweeper, error) {
	e := &ExpirySweeper{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		svc:    svc,
		logger: logger,
	}

	if _, err := e.cron.AddFunc(schedule, e.sweep); err != nil {
		return nil, fmt.Errorf("register expiry job %q: %w", schedule, err)
	}

	return e, nil
}

// Start запускает планировщик.
func (e *ExpirySweeper) Start() {
	e.cron.Start()
	e.logger.Info("listing expiry sweeper started")
}

// Stop останавливает планировщик и ждёт завершения текущего прохода.
func (e *ExpirySweeper) Stop() {
	<-e.cron.Stop().Done()
	e.logger.Info("listing expiry sweeper stopped")
}

func (e *ExpirySweeper) sweep() {
	expired, err := e.svc.ExpireListings(context.Background())
	if err != nil {
		e.logger.Error("expire listings error", zap.Error(err))
		return
	}
	if len(expired) > 0 {
		e.logger.Info("listings expired", zap.Int("count", len(expired)))
	}
}
