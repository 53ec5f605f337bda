package pipeline

import (
	"context"
	"time"
)

func SetClockForTest(r *Runner, now func() time.Time) { r.now = now }

func SetSleeperForTest(r *Runner, sleep func(context.Context, time.Duration) error) {
	r.sleep = sleep
}
