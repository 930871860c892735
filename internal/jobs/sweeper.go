// Package jobs schedules background maintenance work.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper finalises elapsed reservations on a schedule.
type Sweeper interface {
	SweepElapsed(ctx context.Context) (completed, noShows int64, err error)
}

// StartSweeper registers the elapsed-reservation sweep on the given cron
// spec (standard 5-field syntax) and starts the scheduler.  The returned
// cron can be stopped on shutdown.  One sweep runs immediately at startup
// so a restart never leaves stale rows waiting for the next tick.
func StartSweeper(spec string, s Sweeper) (*cron.Cron, error) {
	c := cron.New()
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		completed, noShows, err := s.SweepElapsed(ctx)
		if err != nil {
			log.Printf("sweeper: sweep failed: %v", err)
			return
		}
		if completed > 0 || noShows > 0 {
			log.Printf("sweeper: completed=%d no_show=%d", completed, noShows)
		}
	}
	if _, err := c.AddFunc(spec, run); err != nil {
		return nil, err
	}
	go run()
	c.Start()
	return c, nil
}
