package gc

import (
	"sync"
	"sync/atomic"
)

// State is the collector's coarse state (spec §4.10):
//
//	RUNNING ──request GC──▶ REQUEST_STW
//	REQUEST_STW ──all threads parked──▶ WORLD_STOPPED
//	WORLD_STOPPED ──scan→sweep→recycle──▶ RUNNING
//	                              ╲
//	                               ──space shutdown──▶ ENDING
//
// Folded into a single atomic 32-bit word, matching the teacher's CLOCK-Pro
// convention of packing small enum-like state into one mutation-cheap
// field (internal/clockpro's stateCold/stateHot/stateTest byte) rather
// than a struct of booleans.
type State uint32

const (
	StateRunning State = iota
	StateRequestSTW
	StateWorldStopped
	StateEnding
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateRequestSTW:
		return "REQUEST_STW"
	case StateWorldStopped:
		return "WORLD_STOPPED"
	case StateEnding:
		return "ENDING"
	default:
		return "UNKNOWN"
	}
}

// Collector drives the state machine and the safepoint protocol (spec §5):
// every allocation and every unmanaged→managed transition checks the STW
// flag; when armed, the calling thread parks until the collector signals
// resumption once parked == runningThreads.
type Collector struct {
	state atomic.Uint32

	mu     sync.Mutex
	resume *sync.Cond // signaled when STW lifts

	parked         int64
	runningThreads atomic.Int64

	runFn func() // the actual mark/sweep/recycle pass, set by New

	// FreeHint, when set, reports the space pool's current free-cell
	// count. Used only to decide RequestGC's recovered return value.
	FreeHint func() int64
}

// New constructs a Collector. run performs one full mark-sweep-recycle
// pass (see Cycle in cycle.go) and is invoked with the world
// already stopped.
func New(run func()) *Collector {
	c := &Collector{runFn: run}
	c.resume = sync.NewCond(&c.mu)
	return c
}

func (c *Collector) State() State { return State(c.state.Load()) }

// RegisterThread/UnregisterThread track how many managed threads must
// reach a safepoint before the world is considered stopped.
func (c *Collector) RegisterThread()   { c.runningThreads.Add(1) }
func (c *Collector) UnregisterThread() { c.runningThreads.Add(-1) }

// Park is the Safepoint.Park half of execctx.Safepoint: if STW is armed,
// block until the collector signals resumption.
func (c *Collector) Park() {
	if State(c.state.Load()) != StateRequestSTW {
		return
	}
	c.mu.Lock()
	if State(c.state.Load()) == StateRequestSTW {
		c.parked++
		if c.parked >= c.runningThreads.Load() {
			// Last thread to park: the world is now stopped. Run the
			// collector pass inline on this thread's behalf; this package
			// has no collector goroutine of its own (RequestGC below
			// likewise runs the pass inline when no threads are
			// registered, and otherwise waits for the last parker).
			c.state.Store(uint32(StateWorldStopped))
			if c.runFn != nil {
				c.runFn()
			}
			c.parked = 0
			c.state.Store(uint32(StateRunning))
			c.resume.Broadcast()
			c.mu.Unlock()
			return
		}
		for State(c.state.Load()) == StateRequestSTW || State(c.state.Load()) == StateWorldStopped {
			c.resume.Wait()
		}
	}
	c.mu.Unlock()
}

// RequestGC arms STW and waits for a full cycle to complete, reporting
// whether any cells were returned to the space's free-list (the caller,
// execctx's AllocCell, uses this to decide between retrying and invoking
// the embedder's out-of-memory callback).
func (c *Collector) RequestGC() (recovered bool) {
	c.mu.Lock()
	if State(c.state.Load()) == StateEnding {
		c.mu.Unlock()
		return false
	}
	before := c.freeHint()
	if c.state.CompareAndSwap(uint32(StateRunning), uint32(StateRequestSTW)) {
		// No other managed threads to wait for (e.g. a single-threaded
		// embedding): run the pass immediately.
		if c.runningThreads.Load() == 0 {
			c.state.Store(uint32(StateWorldStopped))
			if c.runFn != nil {
				c.runFn()
			}
			c.state.Store(uint32(StateRunning))
			c.resume.Broadcast()
		}
	}
	for State(c.state.Load()) != StateRunning && State(c.state.Load()) != StateEnding {
		c.resume.Wait()
	}
	c.mu.Unlock()
	return c.freeHint() > before
}

// freeHint is overridden by the embedding space to report free-cell
// counts; Collector itself has no pool reference (kept generic), so this
// defaults to 0 unless FreeHint is set.
func (c *Collector) freeHint() int64 {
	if c.FreeHint == nil {
		return 0
	}
	return c.FreeHint()
}

// Shutdown transitions the collector to ENDING, waking any parked threads
// so they observe the terminal state rather than blocking forever.
func (c *Collector) Shutdown() {
	c.mu.Lock()
	c.state.Store(uint32(StateEnding))
	c.resume.Broadcast()
	c.mu.Unlock()
}
