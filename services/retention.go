package services

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// RetentionSweeper periodically clears finished transfers from the engine
type RetentionSweeper struct {
	scheduler *gocron.Scheduler
	engine    TransferEngine
	retention time.Duration
}

// NewRetentionSweeper creates a sweeper removing transfers that finished
// more than retention ago, checking every interval
func NewRetentionSweeper(engine TransferEngine, retention, interval time.Duration) (*RetentionSweeper, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	rs := &RetentionSweeper{
		scheduler: s,
		engine:    engine,
		retention: retention,
	}

	if _, err := s.Every(interval).Do(rs.Sweep); err != nil {
		return nil, err
	}
	return rs, nil
}

// Start runs the schedule in the background
func (rs *RetentionSweeper) Start() {
	logrus.WithFields(logrus.Fields{
		"retention": rs.retention,
	}).Info("Starting finished transfer sweeper")
	rs.scheduler.StartAsync()
}

// Stop halts the schedule
func (rs *RetentionSweeper) Stop() {
	rs.scheduler.Stop()
}

// Sweep removes expired transfers once
func (rs *RetentionSweeper) Sweep() int {
	n := rs.engine.RemoveFinished(rs.retention)
	if n > 0 {
		logrus.WithField("removed", n).Info("Swept finished transfers")
	}
	return n
}
