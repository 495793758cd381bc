package ratelimit

import (
	"context"
	"hash/maphash"
	"sync"
	"time"
)

const shardCount = 32

type record struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// MemoryLimiter keeps windows in process memory. Records are spread over
// shards to reduce lock contention, and each shard holds at most
// maxTracked/shardCount keys; when a shard is full the record closest to
// expiry is evicted.
type MemoryLimiter struct {
	cfg      Config
	perShard int
	seed     maphash.Seed
	shards   [shardCount]shard
	now      func() time.Time
}

func NewMemoryLimiter(cfg Config, maxTracked int) *MemoryLimiter {
	cfg = cfg.withDefaults()
	perShard := maxTracked / shardCount
	if perShard < 1 {
		perShard = 1
	}
	l := &MemoryLimiter{
		cfg:      cfg,
		perShard: perShard,
		seed:     maphash.MakeSeed(),
		now:      time.Now,
	}
	for i := range l.shards {
		l.shards[i].records = make(map[string]*record)
	}
	return l
}

// WithClock replaces the time source; used by tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) shardFor(key string) *shard {
	return &l.shards[maphash.String(l.seed, key)%shardCount]
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	s := l.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || now.After(rec.resetAt) {
		if !ok && len(s.records) >= l.perShard {
			s.evictLocked(now)
		}
		rec = &record{count: 1, resetAt: now.Add(l.cfg.Window)}
		s.records[key] = rec
		return decide(rec.count, l.cfg.Max, rec.resetAt), nil
	}

	if rec.count >= l.cfg.Max {
		return decide(rec.count+1, l.cfg.Max, rec.resetAt), nil
	}
	rec.count++
	return decide(rec.count, l.cfg.Max, rec.resetAt), nil
}

func (s *shard) evictLocked(now time.Time) {
	var (
		victim string
		oldest time.Time
	)
	for key, rec := range s.records {
		if now.After(rec.resetAt) {
			delete(s.records, key)
			return
		}
		if victim == "" || rec.resetAt.Before(oldest) {
			victim = key
			oldest = rec.resetAt
		}
	}
	if victim != "" {
		delete(s.records, victim)
	}
}

// Sweep drops every record whose window has elapsed and returns how many were
// removed.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	removed := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, rec := range s.records {
			if now.After(rec.resetAt) {
				delete(s.records, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	total := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		total += len(s.records)
		s.mu.Unlock()
	}
	return total
}
