// Package scheduler periodically retries predictions for records that were
// saved while the prediction service was failing.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// Reanalyzer retries pending records of one kind.
type Reanalyzer interface {
	ReanalyzePending(ctx context.Context, kind models.AlertType, olderThan time.Duration, limit int) (int, error)
}

// Config controls the sweep.
type Config struct {
	Interval  time.Duration
	Grace     time.Duration // records younger than this are left alone
	BatchSize int
}

// Scheduler sweeps every record kind on a fixed interval.
type Scheduler struct {
	reanalyzer Reanalyzer
	cfg        Config
	logger     *logging.Logger
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
}

// NewScheduler creates a new reanalysis scheduler.
func NewScheduler(r Reanalyzer, cfg Config, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		reanalyzer: r,
		cfg:        cfg,
		logger:     logger,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start begins the scheduler loop. This should be called in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.stopped)

	s.logger.InfoContext(ctx, "reanalysis scheduler started",
		"interval", s.cfg.Interval.String(),
		"grace", s.cfg.Grace.String(),
		"batch_size", s.cfg.BatchSize,
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stop:
			s.logger.InfoContext(ctx, "reanalysis scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reanalysis scheduler context cancelled")
			return
		}
	}
}

// Stop signals the scheduler to stop and waits for it to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.stopped
}

// RunOnce sweeps each record kind once. Failures are logged; one kind
// failing does not skip the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, kind := range models.AlertTypes {
		n, err := s.reanalyzer.ReanalyzePending(ctx, kind, s.cfg.Grace, s.cfg.BatchSize)
		if err != nil {
			s.logger.WarnContext(ctx, "reanalysis sweep failed",
				logging.SourceKind(string(kind)),
				logging.Error(err),
			)
			continue
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "reanalyzed pending records",
				logging.SourceKind(string(kind)),
				"count", n,
			)
		}
	}
}
