// Package store provides the in-process coordination store used to pass
// intermediate results between pipeline stages.
//
// Entries carry a time-to-live and an owner tag. Expired entries are
// logically absent: reads and queries never return them, and physical
// eviction happens lazily on read or via an optional background sweep.
//
// Example usage:
//
//	s := store.New(store.DefaultConfig())
//	s.Set("selected-pattern:req-1", match, "pattern-agent", 5*time.Minute)
//	match, ok := store.GetAs[catalog.PatternMatch](s, "selected-pattern:req-1")
package store

import (
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is a single stored value with its TTL bookkeeping.
type Entry struct {
	// Key is the caller-defined identifier.
	Key string `json:"key"`

	// Value is the stored payload. The store enforces no schema; typed
	// access goes through GetAs.
	Value any `json:"value"`

	// OwnerTag identifies the component that wrote the entry.
	OwnerTag string `json:"owner_tag"`

	// CreatedAt is when the entry was written.
	CreatedAt time.Time `json:"created_at"`

	// TTL is how long the entry stays visible after CreatedAt.
	TTL time.Duration `json:"ttl"`
}

// expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) expired(now time.Time) bool {
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Stats summarizes store contents for observability.
type Stats struct {
	TotalKeys int            `json:"total_keys"`
	ByOwner   map[string]int `json:"by_owner"`
}

// Config configures a Store.
type Config struct {
	// DefaultTTL is applied when Set is called with a zero TTL.
	DefaultTTL time.Duration

	// SweepInterval is how often the background sweep runs when started.
	// Sweeping is optional; correctness only requires expiry-on-read.
	SweepInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:    time.Hour,
		SweepInterval: time.Minute,
	}
}

// Store is a thread-safe in-memory key-value store with per-entry TTL.
//
// A single RWMutex over a map is sufficient at expected load; all mutation
// goes through Set and Delete so no caller ever holds internal state.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	cfg     Config
	metrics *Metrics // optional, set via SetMetrics

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New creates an empty store.
func New(cfg Config) *Store {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultConfig().DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Store{
		entries: make(map[string]*Entry),
		cfg:     cfg,
	}
}

// SetMetrics attaches a metrics tracker. Optional.
func (s *Store) SetMetrics(m *Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
}

// Set stores a value under key, silently overwriting any previous entry.
// A non-positive ttl falls back to the configured default.
func (s *Store) Set(key string, value any, ownerTag string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		OwnerTag:  ownerTag,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
	if s.metrics != nil {
		s.metrics.SetSize(len(s.entries))
	}
}

// Get returns the value for key, or (nil, false) if the key is absent or
// expired. Expired entries are evicted on the spot.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	metrics := s.metrics
	s.mu.RUnlock()

	if !exists {
		if metrics != nil {
			metrics.RecordMiss()
		}
		return nil, false
	}

	if entry.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry since we released the read lock.
		if cur, ok := s.entries[key]; ok && cur.expired(time.Now()) {
			delete(s.entries, key)
			if s.metrics != nil {
				s.metrics.SetSize(len(s.entries))
			}
		}
		s.mu.Unlock()
		if metrics != nil {
			metrics.RecordMiss()
		}
		return nil, false
	}

	if metrics != nil {
		metrics.RecordHit()
	}
	return entry.Value, true
}

// GetEntry returns the full entry for key including TTL bookkeeping,
// or (nil, false) if absent or expired.
func (s *Store) GetEntry(key string) (*Entry, bool) {
	s.mu.RLock()
	entry, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists || entry.expired(time.Now()) {
		return nil, false
	}
	return entry, true
}

// GetAs returns the value for key type-asserted to T. The second return is
// false when the key is absent, expired, or holds a different type.
func GetAs[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Query returns all live entries whose keys match the glob pattern and, when
// maxAge > 0, were created within maxAge of now. Result order is unspecified.
// Invalid patterns match nothing.
func (s *Store) Query(pattern string, maxAge time.Duration) []*Entry {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entry
	for key, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		if maxAge > 0 && now.Sub(entry.CreatedAt) > maxAge {
			continue
		}
		ok, err := doublestar.Match(pattern, key)
		if err != nil || !ok {
			continue
		}
		results = append(results, entry)
	}
	return results
}

// Delete removes key. No-op if absent.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	if s.metrics != nil {
		s.metrics.SetSize(len(s.entries))
	}
}

// DeleteMatching removes all keys matching the glob pattern and returns how
// many were removed. Expired entries count as removed.
func (s *Store) DeleteMatching(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			break
		}
		if ok {
			delete(s.entries, key)
			removed++
		}
	}
	if s.metrics != nil {
		s.metrics.SetSize(len(s.entries))
	}
	return removed
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
	if s.metrics != nil {
		s.metrics.SetSize(0)
	}
}

// Stats reports live entry counts, total and per owner tag. Expired entries
// are excluded from the counts but not evicted here.
func (s *Store) Stats() Stats {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByOwner: make(map[string]int)}
	for _, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		stats.TotalKeys++
		stats.ByOwner[entry.OwnerTag]++
	}
	return stats
}

// StartSweep launches the background sweep goroutine. Safe to call once;
// subsequent calls are no-ops. Stop with StopSweep.
func (s *Store) StartSweep() {
	s.sweepOnce.Do(func() {
		s.mu.Lock()
		s.sweepStop = make(chan struct{})
		s.mu.Unlock()
		go s.sweepLoop()
	})
}

// StopSweep stops the background sweep if it was started.
func (s *Store) StopSweep() {
	s.mu.Lock()
	stop := s.sweepStop
	s.sweepStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (s *Store) sweepLoop() {
	s.mu.RLock()
	interval := s.cfg.SweepInterval
	stop := s.sweepStop
	s.mu.RUnlock()
	if stop == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts all expired entries immediately and returns how many were
// removed. Exposed for tests and for callers that prefer explicit cleanup.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 && s.metrics != nil {
		s.metrics.SetSize(len(s.entries))
	}
	return removed
}
