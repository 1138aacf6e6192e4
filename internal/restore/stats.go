package restore

import (
	"sync"
	"time"
)

// Stats tracks restore run progress (thread-safe: the run itself is
// sequential but the metrics server reads concurrently).
type Stats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	NodesTotal       int64
	CredentialsMade  int64
	WorkflowsMade    int64
	ResourcesSkipped int64
	ResourcesFailed  int64
	RolledBack       int64
}

// StatsSnapshot is a point-in-time copy of stats.
type StatsSnapshot struct {
	Uptime           time.Duration
	NodesTotal       int64
	CredentialsMade  int64
	WorkflowsMade    int64
	ResourcesSkipped int64
	ResourcesFailed  int64
	RolledBack       int64
}

// NewStats starts a stats tracker for a run over the given node count.
func NewStats(total int) *Stats {
	return &Stats{StartTime: time.Now(), NodesTotal: int64(total)}
}

func (s *Stats) IncrCredentials() {
	s.mu.Lock()
	s.CredentialsMade++
	s.mu.Unlock()
}

func (s *Stats) IncrWorkflows() {
	s.mu.Lock()
	s.WorkflowsMade++
	s.mu.Unlock()
}

func (s *Stats) IncrSkipped() {
	s.mu.Lock()
	s.ResourcesSkipped++
	s.mu.Unlock()
}

func (s *Stats) IncrFailed() {
	s.mu.Lock()
	s.ResourcesFailed++
	s.mu.Unlock()
}

func (s *Stats) AddRolledBack(n int) {
	s.mu.Lock()
	s.RolledBack += int64(n)
	s.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the stats.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Uptime:           time.Since(s.StartTime),
		NodesTotal:       s.NodesTotal,
		CredentialsMade:  s.CredentialsMade,
		WorkflowsMade:    s.WorkflowsMade,
		ResourcesSkipped: s.ResourcesSkipped,
		ResourcesFailed:  s.ResourcesFailed,
		RolledBack:       s.RolledBack,
	}
}
