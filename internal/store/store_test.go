package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("key-1", "value-1", "test", time.Minute)

	v, ok := s.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, "value-1", v)
}

func TestStore_GetMissing(t *testing.T) {
	s := New(DefaultConfig())

	v, ok := s.Get("absent")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestStore_OverwriteSilently(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("key", 1, "a", time.Minute)
	s.Set("key", 2, "b", time.Minute)

	v, ok := s.Get("key")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	stats := s.Stats()
	assert.Equal(t, 1, stats.TotalKeys)
	assert.Equal(t, 1, stats.ByOwner["b"])
	assert.Zero(t, stats.ByOwner["a"])
}

func TestStore_Expiry(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("ephemeral", "gone soon", "test", 10*time.Millisecond)

	v, ok := s.Get("ephemeral")
	require.True(t, ok)
	assert.Equal(t, "gone soon", v)

	time.Sleep(20 * time.Millisecond)

	_, ok = s.Get("ephemeral")
	assert.False(t, ok, "expired entry must be logically absent")

	// Expired entries are excluded from stats too.
	assert.Zero(t, s.Stats().TotalKeys)
}

func TestStore_GetAs(t *testing.T) {
	type record struct{ N int }

	s := New(DefaultConfig())
	s.Set("typed", record{N: 7}, "test", time.Minute)

	got, ok := GetAs[record](s, "typed")
	require.True(t, ok)
	assert.Equal(t, 7, got.N)

	// Wrong type yields the zero value, not a panic.
	_, ok = GetAs[string](s, "typed")
	assert.False(t, ok)

	_, ok = GetAs[record](s, "absent")
	assert.False(t, ok)
}

func TestStore_Query(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("metric:agent:1", "a", "router", time.Minute)
	s.Set("metric:agent:2", "b", "router", time.Minute)
	s.Set("metric:handler:1", "c", "router", time.Minute)
	s.Set("other", "d", "test", time.Minute)

	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{name: "all metrics", pattern: "metric:*", want: 3},
		{name: "one path", pattern: "metric:agent:*", want: 2},
		{name: "everything", pattern: "*", want: 4},
		{name: "no match", pattern: "missing:*", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, s.Query(tt.pattern, 0), tt.want)
		})
	}
}

func TestStore_QueryMaxAge(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("old", "x", "test", time.Minute)
	time.Sleep(30 * time.Millisecond)
	s.Set("new", "y", "test", time.Minute)

	results := s.Query("*", 20*time.Millisecond)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Key)
}

func TestStore_QueryExcludesExpired(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("live", "x", "test", time.Minute)
	s.Set("dead", "y", "test", 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	results := s.Query("*", 0)
	require.Len(t, results, 1)
	assert.Equal(t, "live", results[0].Key)
}

func TestStore_Delete(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("key", "value", "test", time.Minute)
	s.Delete("key")

	_, ok := s.Get("key")
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	s.Delete("never-existed")
}

func TestStore_DeleteMatching(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("metric:agent:1", "a", "router", time.Minute)
	s.Set("metric:handler:1", "b", "router", time.Minute)
	s.Set("selected-pattern:req", "c", "agent", time.Minute)

	removed := s.DeleteMatching("metric:*")
	assert.Equal(t, 2, removed)

	_, ok := s.Get("selected-pattern:req")
	assert.True(t, ok, "non-matching keys must survive")
}

func TestStore_Clear(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("a", 1, "x", time.Minute)
	s.Set("b", 2, "y", time.Minute)
	s.Clear()

	assert.Zero(t, s.Stats().TotalKeys)
}

func TestStore_Stats(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("a", 1, "pattern-agent", time.Minute)
	s.Set("b", 2, "pattern-agent", time.Minute)
	s.Set("c", 3, "router", time.Minute)

	stats := s.Stats()
	assert.Equal(t, 3, stats.TotalKeys)
	assert.Equal(t, 2, stats.ByOwner["pattern-agent"])
	assert.Equal(t, 1, stats.ByOwner["router"])
}

func TestStore_Sweep(t *testing.T) {
	s := New(DefaultConfig())

	s.Set("dead-1", 1, "test", 5*time.Millisecond)
	s.Set("dead-2", 2, "test", 5*time.Millisecond)
	s.Set("live", 3, "test", time.Minute)
	time.Sleep(10 * time.Millisecond)

	removed := s.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, s.Stats().TotalKeys)
}

func TestStore_DefaultTTLApplied(t *testing.T) {
	s := New(Config{DefaultTTL: 50 * time.Millisecond})

	s.Set("key", "value", "test", 0)

	entry, ok := s.GetEntry("key")
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, entry.TTL)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				s.Set(key, j, "writer", time.Minute)
				s.Get(key)
				s.Query("key-*", 0)
				if j%10 == 0 {
					s.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Positive(t, s.Stats().TotalKeys)
}

func TestStore_StartStopSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SweepInterval = 10 * time.Millisecond
	s := New(cfg)

	s.Set("ephemeral", 1, "test", 5*time.Millisecond)
	s.StartSweep()
	defer s.StopSweep()

	assert.Eventually(t, func() bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, present := s.entries["ephemeral"]
		return !present
	}, time.Second, 5*time.Millisecond, "sweep should physically evict the expired entry")
}
