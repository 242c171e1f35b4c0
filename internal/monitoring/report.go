package monitoring

import (
	"context"
	"time"

	"github.com/banshee-data/livestack/internal/timeutil"
)

// Report logs the result of snapshot through Logf every interval until ctx
// is cancelled. A non-positive interval disables reporting. A final report
// is written on cancellation so the last counters are not lost.
func Report(ctx context.Context, clock timeutil.Clock, name string, interval time.Duration, snapshot func() string) {
	if interval <= 0 {
		return
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			Logf("%s: %s (final)", name, snapshot())
			return
		case <-ticker.C():
			Logf("%s: %s", name, snapshot())
		}
	}
}
