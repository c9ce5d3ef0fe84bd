package scheduler

import (
	"context"
	"time"

	"announcebot-api/internal/broadcast"
	"announcebot-api/internal/common"

	"go.uber.org/zap"
)

// Job names registered by the server
const (
	JobBroadcast         = "broadcast"
	JobConfirmationSweep = "confirmation_sweep"
)

// AnnouncementDeliverer sends every stored announcement to every user
type AnnouncementDeliverer interface {
	DeliverAnnouncements(ctx context.Context) (broadcast.Result, error)
}

// ConfirmationSweeper drops expired confirmation prompts
type ConfirmationSweeper interface {
	Sweep(now time.Time) int
}

// BroadcastJob runs one announcement tick. Per-send failures are part of
// the result; only a store failure fails the job.
func BroadcastJob(deliverer AnnouncementDeliverer, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		result, err := deliverer.DeliverAnnouncements(ctx)
		if err != nil {
			return err
		}
		logger.Info("Announcement tick completed",
			zap.Int("attempted", result.Attempted),
			zap.Int("delivered", result.Delivered),
			zap.Int("failed", result.Failed))
		return nil
	}
}

// SweepJob expires stale confirmation prompts
func SweepJob(sweeper ConfirmationSweeper, clock common.Clock, logger *zap.Logger) Job {
	return func(context.Context) error {
		if removed := sweeper.Sweep(clock.Now()); removed > 0 {
			logger.Debug("Expired confirmation prompts", zap.Int("removed", removed))
		}
		return nil
	}
}
