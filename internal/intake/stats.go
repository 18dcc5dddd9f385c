package intake

import (
	"sync/atomic"
	"time"
)

// Stats tracks intake counters for the status surface
type Stats struct {
	startTime  time.Time
	processed  atomic.Uint64
	duplicates atomic.Uint64
	audioJobs  atomic.Uint64
}

// NewStats creates a counter set anchored at the current time
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) markProcessed() { s.processed.Add(1) }
func (s *Stats) markDuplicate() { s.duplicates.Add(1) }
func (s *Stats) markAudioJob()  { s.audioJobs.Add(1) }

// Snapshot returns the current counter values
func (s *Stats) Snapshot() (processed, duplicates, audioJobs uint64) {
	return s.processed.Load(), s.duplicates.Load(), s.audioJobs.Load()
}

// Uptime returns how long the process has been serving
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.startTime)
}
