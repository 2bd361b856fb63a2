package stats

import (
	"container/heap"
	"time"
)

// expiryItem is a cache key with its expiry time
type expiryItem struct {
	key       string
	expiresAt time.Time
	index     int // maintained by the heap
}

// expiryHeap is a min-heap of cache keys ordered by expiry time with O(1)
// lookup by key. It is not thread-safe, the cache guards it with a mutex.
type expiryHeap struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

func newExpiryHeap() *expiryHeap {
	return &expiryHeap{
		items: make([]*expiryItem, 0),
		byKey: make(map[string]*expiryItem),
	}
}

// heap.Interface

func (h *expiryHeap) Len() int { return len(h.items) }

func (h *expiryHeap) Less(i, j int) bool {
	return h.items[i].expiresAt.Before(h.items[j].expiresAt)
}

func (h *expiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *expiryHeap) Push(x any) {
	it := x.(*expiryItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byKey[it.key] = it
}

func (h *expiryHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = nil
	it.index = -1
	h.items = h.items[:n-1]
	delete(h.byKey, it.key)
	return it
}

// schedule adds a key or moves it to a new expiry time
func (h *expiryHeap) schedule(key string, expiresAt time.Time) {
	if it, ok := h.byKey[key]; ok {
		it.expiresAt = expiresAt
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &expiryItem{key: key, expiresAt: expiresAt})
}

// remove drops a key from the heap
func (h *expiryHeap) remove(key string) bool {
	it, ok := h.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(h, it.index)
	return true
}

// popExpired removes and returns all keys that expired at or before now, oldest first
func (h *expiryHeap) popExpired(now time.Time) []string {
	var keys []string
	for len(h.items) > 0 && !h.items[0].expiresAt.After(now) {
		keys = append(keys, heap.Pop(h).(*expiryItem).key)
	}
	return keys
}
