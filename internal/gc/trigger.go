package gc

// StatsSource reports the heap's current extent and free-cell count,
// satisfied directly by *cellpool.Pool.Stats.
type StatsSource interface {
	Stats() (totalCells, freeCells int64)
}

// ShouldTrigger reports whether free cells have fallen below the given
// fraction of total heap extent (spec §4.10 "Trigger": "free-cells
// falling below a threshold"). A space typically checks this after every
// batch refill and calls Collector.RequestGC if true.
func ShouldTrigger(stats StatsSource, minFreeFraction float64) bool {
	total, free := stats.Stats()
	if total == 0 {
		return false
	}
	return float64(free)/float64(total) < minFreeFraction
}
