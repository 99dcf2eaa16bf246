package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

// MemoryCache implements Service in process. Values are stored encoded so that reads
// behave exactly like the Redis implementation.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]memoryItem
	maxSize int
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{MaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}
	return &MemoryCache{
		data:    make(map[string]memoryItem),
		maxSize: cfg.MaxSize,
		now:     time.Now,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLocked()
	}
	item := memoryItem{data: append([]byte(nil), data...)}
	if expiration > 0 {
		item.expireAt = mc.now().Add(expiration)
	}
	mc.data[key] = item
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.data[key]
	if ok && mc.expired(item) {
		delete(mc.data, key)
		ok = false
	}
	mc.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return decode(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		delete(mc.data, k)
	}
	return nil
}

func (mc *MemoryCache) Close() error { return nil }

func (mc *MemoryCache) expired(item memoryItem) bool {
	return !item.expireAt.IsZero() && mc.now().After(item.expireAt)
}

// evictLocked drops expired entries, then the entry closest to expiry if still full.
func (mc *MemoryCache) evictLocked() {
	var victim string
	var soonest time.Time
	for k, item := range mc.data {
		if mc.expired(item) {
			delete(mc.data, k)
			continue
		}
		if !item.expireAt.IsZero() && (victim == "" || item.expireAt.Before(soonest)) {
			victim, soonest = k, item.expireAt
		}
	}
	if len(mc.data) < mc.maxSize {
		return
	}
	if victim == "" {
		for k := range mc.data {
			victim = k
			break
		}
	}
	delete(mc.data, victim)
}
