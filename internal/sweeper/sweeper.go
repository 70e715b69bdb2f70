// Package sweeper evicts peers that have gone silent past the
// configured inactivity threshold.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/peerwire/signaling/internal/metrics"
	"github.com/peerwire/signaling/internal/registry"
)

type Sweeper struct {
	reg       *registry.Registry
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
}

func New(reg *registry.Registry, threshold, interval time.Duration) *Sweeper {
	return NewWithClock(reg, threshold, interval, time.Now)
}

func NewWithClock(reg *registry.Registry, threshold, interval time.Duration, now func() time.Time) *Sweeper {
	return &Sweeper{
		reg:       reg,
		threshold: threshold,
		interval:  interval,
		now:       now,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("sweep completed", "evicted", n, "peers", s.reg.Count())
			}
		}
	}
}

// Sweep evicts every peer whose last activity is older than the
// threshold and force-closes its connection. It operates on a
// snapshot of ids taken at sweep start; ids that vanish mid-sweep are
// skipped. Returns the number of peers evicted.
func (s *Sweeper) Sweep() int {
	now := s.now()
	evicted := 0

	for _, id := range s.reg.ListIDs() {
		rec, ok := s.reg.Lookup(id)
		if !ok {
			continue
		}
		if now.Sub(rec.LastActiveAt) <= s.threshold {
			continue
		}

		removed, ok := s.reg.Remove(id)
		if !ok {
			continue
		}
		if removed.Conn != nil {
			_ = removed.Conn.Close()
		}
		metrics.SweeperEvictions.Inc()
		metrics.ConnectedPeers.Dec()
		slog.Info("evicted stale peer", "peer", id, "idle", now.Sub(removed.LastActiveAt))
		evicted++
	}
	return evicted
}
