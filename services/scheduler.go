package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartRankScheduler recomputes leaderboard ranks every interval. The caller
// shuts the returned scheduler down.
func StartRankScheduler(ledger *PointsLedger, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			changed, err := ledger.RecomputeRanks(ctx)
			if err != nil {
				slog.Error("[Scheduler] rank recompute failed", "error", err)
				return
			}
			if changed > 0 {
				slog.Info("[Scheduler] ranks updated", "rows", changed)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule rank job: %w", err)
	}

	sched.Start()
	return sched, nil
}
