package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// statsAccumulator counts item progress from concurrent workers and writes
// batched snapshots to the session store
type statsAccumulator struct {
	registered atomic.Int64
	uploaded   atomic.Int64
	succeeded  atomic.Int64
	errors     atomic.Int64
	pending    atomic.Int64 // operations since the last flush

	mu            sync.Mutex
	lastFlush     time.Time
	batchInterval time.Duration
	batchSize     int64

	total        int
	sessionStore SessionStore
	session      *Session
}

// newStatsAccumulator creates a stats accumulator. sessionStore may be nil, in which
// case flushes only update the in-memory session.
func newStatsAccumulator(sessionStore SessionStore, session *Session, total int, batchInterval time.Duration, batchSize int64) *statsAccumulator {
	return &statsAccumulator{
		sessionStore:  sessionStore,
		session:       session,
		total:         total,
		batchInterval: batchInterval,
		batchSize:     batchSize,
		lastFlush:     time.Now(),
	}
}

func (s *statsAccumulator) incrementRegistered() {
	s.registered.Add(1)
	s.pending.Add(1)
}

func (s *statsAccumulator) incrementUploaded() {
	s.uploaded.Add(1)
	s.pending.Add(1)
}

func (s *statsAccumulator) incrementSucceeded() {
	s.succeeded.Add(1)
	s.pending.Add(1)
}

func (s *statsAccumulator) incrementErrors() {
	s.errors.Add(1)
	s.pending.Add(1)
}

// shouldFlush checks if stats should be flushed based on time or batch size
func (s *statsAccumulator) shouldFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastFlush) >= s.batchInterval {
		return true
	}
	return s.pending.Load() >= s.batchSize
}

// flush copies the counters into the session and writes it
func (s *statsAccumulator) flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Stats = s.snapshot()
	s.pending.Store(0)
	s.lastFlush = time.Now()

	if s.sessionStore == nil {
		return nil
	}
	return s.sessionStore.Update(ctx, s.session)
}

// snapshot returns the current stats without flushing
func (s *statsAccumulator) snapshot() SessionStats {
	return SessionStats{
		Total:      s.total,
		Registered: int(s.registered.Load()),
		Uploaded:   int(s.uploaded.Load()),
		Succeeded:  int(s.succeeded.Load()),
		Errors:     int(s.errors.Load()),
	}
}
