package chat

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/zhouzirui/bikebot/internal/logging"
)

// StartJanitor schedules a periodic sweep of idle sessions. The returned
// func stops the scheduler.
func (s *Service) StartJanitor(interval, maxIdle time.Duration) (func() error, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger(s.logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := s.SweepIdle(maxIdle); n > 0 {
				s.logger.Info().Int("removed", n).Dur("max_idle", maxIdle).Msg("swept idle sessions")
			}
		}),
		gocron.WithName("session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	scheduler.Start()
	s.logger.Info().Dur("interval", interval).Dur("max_idle", maxIdle).Msg("session janitor started")

	return scheduler.Shutdown, nil
}
