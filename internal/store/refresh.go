package store

import (
	"context"
	"time"

	"nudge/internal/alias"
	"nudge/internal/logger"
)

// DefaultRefreshInterval is how long a command set stays fresh.
const DefaultRefreshInterval = 24 * time.Hour

// Indexer rebuilds the command set from the system.
type Indexer interface {
	Executables(ctx context.Context) []string
	Aliases(ctx context.Context) []alias.Alias
}

// Refresher applies the refresh policy to a cache.
type Refresher struct {
	Indexer  Indexer
	Interval time.Duration
	Now      func() time.Time
}

// NewRefresher creates a Refresher with the default interval
func NewRefresher(idx Indexer) *Refresher {
	return &Refresher{Indexer: idx, Interval: DefaultRefreshInterval, Now: time.Now}
}

// Stale reports whether the command set is older than the interval. A
// timestamp in the future is treated as stale.
func (r *Refresher) Stale(c *Cache) bool {
	now := r.now()
	if c.LastRefreshed.IsZero() || c.LastRefreshed.After(now) {
		return true
	}
	return now.Sub(c.LastRefreshed) > r.interval()
}

// RefreshIfStale rebuilds the command set when it is stale or force is set.
// Learned corrections, history and frequencies are never touched. It reports
// whether a rebuild happened.
func (r *Refresher) RefreshIfStale(ctx context.Context, c *Cache, force bool) bool {
	if !force && !r.Stale(c) {
		return false
	}

	start := time.Now()
	executables := r.Indexer.Executables(ctx)
	aliases := r.Indexer.Aliases(ctx)
	if ctx.Err() != nil {
		// A cancelled scan is partial; keep the old set.
		return false
	}

	c.SetCommandSet(executables, aliases)
	c.LastRefreshed = r.now()

	logger.With("store").Debug("command set refreshed",
		"forced", force,
		"commands", len(c.Commands),
		"aliases", len(c.Aliases),
		"took", time.Since(start),
	)
	return true
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Refresher) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return DefaultRefreshInterval
}
