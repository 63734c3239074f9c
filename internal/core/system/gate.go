package system

import "time"

// Gate rate-limits an expensive system. Ready is called once per tick.
type Gate interface {
	Ready(dt time.Duration) bool
}

// EveryTicks opens on the first tick and then once every n ticks.
func EveryTicks(n int) Gate {
	if n < 1 {
		n = 1
	}
	return &tickGate{every: n}
}

type tickGate struct {
	every int
	count int
}

func (g *tickGate) Ready(time.Duration) bool {
	ready := g.count == 0
	g.count++
	if g.count >= g.every {
		g.count = 0
	}
	return ready
}

// EveryInterval opens on the first tick and then whenever the accumulated tick
// time reaches interval. It counts simulated time, not wall time.
func EveryInterval(interval time.Duration) Gate {
	return &intervalGate{interval: interval, elapsed: interval}
}

type intervalGate struct {
	interval time.Duration
	elapsed  time.Duration
}

func (g *intervalGate) Ready(dt time.Duration) bool {
	if g.elapsed >= g.interval {
		g.elapsed = dt
		return true
	}
	g.elapsed += dt
	return false
}
