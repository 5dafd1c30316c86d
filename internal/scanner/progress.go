package scanner

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxEstimate keeps the heuristic estimate inside [0, 100).
const maxEstimate = 99.9

// Progress reports scanning progress.
type Progress struct {
	// CurrentPath is the directory most recently entered.
	CurrentPath string
	// FilesScanned is the total files found so far.
	FilesScanned int64
	// DirsScanned is the total directories found so far.
	DirsScanned int64
	// Estimate is a heuristic percentage in [0, 100).
	Estimate float64
	// Errors is the count of absorbed enumeration faults.
	Errors int64
	// StartTime is when the scan began.
	StartTime time.Time
	// Duration is elapsed time.
	Duration time.Duration
}

// Counters are the running totals of one scan. The walker writes them; any
// goroutine may read a Snapshot. Totals only grow until Reset.
type Counters struct {
	files atomic.Int64
	dirs  atomic.Int64

	mu          sync.RWMutex
	currentPath string
	estimate    float64
}

// AddFiles adds n to the file total.
func (c *Counters) AddFiles(n int) { c.files.Add(int64(n)) }

// AddDirs adds n to the directory total.
func (c *Counters) AddDirs(n int) { c.dirs.Add(int64(n)) }

// Files returns the file total.
func (c *Counters) Files() int64 { return c.files.Load() }

// Dirs returns the directory total.
func (c *Counters) Dirs() int64 { return c.dirs.Load() }

// Enter records the directory currently being scanned.
func (c *Counters) Enter(path string) {
	c.mu.Lock()
	c.currentPath = path
	c.mu.Unlock()
}

// SetEstimate records the heuristic completion percentage.
func (c *Counters) SetEstimate(v float64) {
	c.mu.Lock()
	c.estimate = v
	c.mu.Unlock()
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.files.Store(0)
	c.dirs.Store(0)
	c.mu.Lock()
	c.currentPath = ""
	c.estimate = 0
	c.mu.Unlock()
}

// Snapshot returns the current totals. Time fields are left for the caller.
func (c *Counters) Snapshot() Progress {
	c.mu.RLock()
	path, est := c.currentPath, c.estimate
	c.mu.RUnlock()
	return Progress{
		CurrentPath:  path,
		FilesScanned: c.files.Load(),
		DirsScanned:  c.dirs.Load(),
		Estimate:     est,
	}
}

// estimate is the progress heuristic for the i-th of n sibling directories:
// i * (n/100). It only looks at the current level, is not monotonic across
// levels and never reaches 100; treat it as an activity indicator.
func estimate(i, n int) float64 {
	v := float64(i) * (float64(n) / 100.0)
	if v < 0 {
		return 0
	}
	if v > maxEstimate {
		return maxEstimate
	}
	return v
}
