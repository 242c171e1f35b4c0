package main

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/monitoring"
	"github.com/banshee-data/livestack/internal/timeutil"
)

// liveSnapshot keeps the newest JPEG rendition on disk for whatever serves
// the live view. Writes are rate limited and atomic (temp file + rename).
type liveSnapshot struct {
	path     string
	interval time.Duration
	clock    timeutil.Clock

	mu   sync.Mutex
	last time.Time
}

func newLiveSnapshot(path string, interval time.Duration) *liveSnapshot {
	return &liveSnapshot{path: path, interval: interval, clock: timeutil.RealClock{}}
}

func (l *liveSnapshot) write(f *camera.Frame) {
	if len(f.JPEG) == 0 {
		return
	}
	l.mu.Lock()
	now := l.clock.Now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		l.mu.Unlock()
		return
	}
	l.last = now
	l.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".live-*.jpg")
	if err != nil {
		monitoring.Logf("live snapshot: %v", err)
		return
	}
	if _, err := tmp.Write(f.JPEG); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		monitoring.Logf("live snapshot: %v", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		monitoring.Logf("live snapshot: %v", err)
		return
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		monitoring.Logf("live snapshot: %v", err)
	}
}
