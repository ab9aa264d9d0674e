// Package scheduler drives the periodic sweep of live matches.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

type Ticker interface {
	Tick(ctx context.Context, now time.Time)
}

type Scheduler struct {
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

// Start runs t.Tick every interval. A sweep that overruns the interval is
// never overlapped by the next one.
func Start(ctx context.Context, t Ticker, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		interval = time.Second
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			t.Tick(ctx, time.Now())
		}),
		gocron.WithName("match-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return nil, err
	}
	sched.Start()
	log.Info().Dur("interval", interval).Msg("match tick scheduled")
	return &Scheduler{sched: sched, cancel: cancel}, nil
}

func (s *Scheduler) Stop() error {
	s.cancel()
	return s.sched.Shutdown()
}
