package services

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is implemented by stores that need periodic purging.
type Sweeper interface {
	Sweep() int
}

// StartScheduler runs housekeeping jobs: idempotency sweeps every
// IdempotencySweepInterval when the store needs them. The caller owns the
// returned scheduler and must Shutdown it.
func StartScheduler(store IdempotencyStore) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if sweeper, ok := store.(Sweeper); ok {
		log := componentLogger("scheduler")
		if _, err := sched.NewJob(
			gocron.DurationJob(IdempotencySweepInterval),
			gocron.NewTask(func() {
				if n := sweeper.Sweep(); n > 0 {
					log.WithField("removed", n).Debug("swept expired idempotency records")
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("schedule idempotency sweep: %w", err)
		}
	}

	sched.Start()
	return sched, nil
}
