package service

import (
	"context"
	"time"

	apprepository "github.com/sifan077/paylink/internal/app/repository"
	"go.uber.org/zap"
)

const defaultEventRetention = 30 * 24 * time.Hour

// EventRetentionSweeper periodically deletes link events older than the retention window.
type EventRetentionSweeper struct {
	logger    *zap.Logger
	repo      apprepository.LinkEventRepository
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
}

// NewEventRetentionSweeper creates a new retention sweeper.
func NewEventRetentionSweeper(logger *zap.Logger, repo apprepository.LinkEventRepository, retention, interval time.Duration) *EventRetentionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = defaultEventRetention
	}
	return &EventRetentionSweeper{
		logger:    logger,
		repo:      repo,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *EventRetentionSweeper) Start() {
	go s.run()
}

// Stop stops the periodic sweep.
func (s *EventRetentionSweeper) Stop() {
	close(s.stopChan)
}

func (s *EventRetentionSweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.stopChan:
			s.logger.Info("link event retention sweeper stopped")
			return
		}
	}
}

func (s *EventRetentionSweeper) sweep(ctx context.Context) int64 {
	before := s.now().Add(-s.retention)

	affected, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to delete expired link events", zap.Error(err))
		return 0
	}

	if affected > 0 {
		s.logger.Info("deleted expired link events",
			zap.Int64("count", affected),
			zap.Time("before", before),
		)
	}
	return affected
}
