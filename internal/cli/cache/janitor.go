package cache

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor sweeps expired entries on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	store  Store
	logger *zap.SugaredLogger
}

// NewJanitor schedules Sweep with a cron spec such as "@every 1m".
func NewJanitor(store Store, spec string, logger *zap.SugaredLogger) (*Janitor, error) {
	j := &Janitor{cron: cron.New(), store: store, logger: logger}
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := j.store.Sweep(ctx, time.Now())
	if err != nil {
		j.logger.Warnw("cache sweep failed", "error", err)
		return
	}
	if n > 0 {
		j.logger.Debugw("cache swept", "removed", n)
	}
}

func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running sweep.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
