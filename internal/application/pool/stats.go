package pool

import "go.uber.org/atomic"

// Stats is a snapshot of pool analytics. It is for monitoring only.
type Stats struct {
	Hits      int64
	Misses    int64
	Spawns    int64
	Despawns  int64
	Overflows int64
	Created   int64
	Destroyed int64
	Active    int
	Idle      int
}

// HitRate returns hits / (hits + misses), or 0 before any spawn.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// counters are readable from any goroutine without taking the manager lock.
type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	spawns    atomic.Int64
	despawns  atomic.Int64
	overflows atomic.Int64
	created   atomic.Int64
	destroyed atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Spawns:    c.spawns.Load(),
		Despawns:  c.despawns.Load(),
		Overflows: c.overflows.Load(),
		Created:   c.created.Load(),
		Destroyed: c.destroyed.Load(),
	}
}
