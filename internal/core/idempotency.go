package core

import (
	"container/list"
	"fmt"
	"sync"
)

// IdempotencyChecker implements two-tier deduplication of command request
// IDs: an in-memory LRU for the hot path, backed by an optional durable
// checker (the Postgres event log) for keys evicted from memory.
//
// Unlike a single-threaded event loop, transitions on different auctions run
// concurrently here, so the checker is guarded by its own mutex.
type IdempotencyChecker struct {
	mu  sync.Mutex
	lru *idempotencyLRU

	dbChecker DBIdempotencyChecker
}

// DBIdempotencyChecker is the interface for the durable dedup lookup.
type DBIdempotencyChecker interface {
	IsDuplicate(commandType string, idempotencyKey string) (bool, error)
}

func NewIdempotencyChecker(capacity int, dbChecker DBIdempotencyChecker) *IdempotencyChecker {
	return &IdempotencyChecker{
		lru:       newIdempotencyLRU(capacity),
		dbChecker: dbChecker,
	}
}

// IsDuplicate checks if a command has already been committed.
func (ic *IdempotencyChecker) IsDuplicate(commandType, idempotencyKey string) bool {
	compositeKey := fmt.Sprintf("%s:%s", commandType, idempotencyKey)

	ic.mu.Lock()
	hit := ic.lru.contains(compositeKey)
	ic.mu.Unlock()
	if hit {
		return true
	}

	if ic.dbChecker != nil {
		isDup, err := ic.dbChecker.IsDuplicate(commandType, idempotencyKey)
		if err != nil {
			// Conservative: a DB issue must not block command processing.
			return false
		}
		if isDup {
			ic.mu.Lock()
			ic.lru.add(compositeKey)
			ic.mu.Unlock()
			return true
		}
	}

	return false
}

// IsDuplicateCached consults only the in-memory tier. Used for the
// post-lock recheck: an in-flight duplicate has just been marked, and the
// durable tier was already consulted before the lock was taken.
func (ic *IdempotencyChecker) IsDuplicateCached(commandType, idempotencyKey string) bool {
	compositeKey := fmt.Sprintf("%s:%s", commandType, idempotencyKey)
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.lru.contains(compositeKey)
}

// MarkProcessed records a committed command's key.
func (ic *IdempotencyChecker) MarkProcessed(commandType, idempotencyKey string) {
	compositeKey := fmt.Sprintf("%s:%s", commandType, idempotencyKey)
	ic.mu.Lock()
	ic.lru.add(compositeKey)
	ic.mu.Unlock()
}

// Warm loads a batch of composite keys, used on restart to avoid cold-path
// DB lookups for recently committed commands.
func (ic *IdempotencyChecker) Warm(keys []string) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	for _, key := range keys {
		ic.lru.add(key)
	}
}

// Size returns the current number of cached keys.
func (ic *IdempotencyChecker) Size() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.lru.size()
}

// --- LRU implementation ---

type idempotencyLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List
}

type lruEntry struct {
	key string
}

func newIdempotencyLRU(capacity int) *idempotencyLRU {
	return &idempotencyLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

func (lru *idempotencyLRU) contains(key string) bool {
	elem, exists := lru.cache[key]
	if exists {
		lru.lruList.MoveToFront(elem)
		return true
	}
	return false
}

func (lru *idempotencyLRU) add(key string) {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return
	}

	elem := lru.lruList.PushFront(&lruEntry{key: key})
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		oldest := lru.lruList.Back()
		if oldest != nil {
			lru.lruList.Remove(oldest)
			delete(lru.cache, oldest.Value.(*lruEntry).key)
		}
	}
}

func (lru *idempotencyLRU) size() int {
	return lru.lruList.Len()
}
