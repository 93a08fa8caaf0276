// Package cache implements the bounded, deduplicating, rank-ordered
// result cache the search workers and their merge step share.
package cache

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/latticeforge/sqs/pkg/objective"
)

// Entry is one retained (objective, configuration) pair.
type Entry struct {
	Objective     float64
	Configuration []int
	Rank          int // assigned by Drain, 0-based, 0 = best
}

// Cache retains at most Capacity entries, the best seen so far by
// objective.Less, with exact-duplicate configurations collapsed to a
// single entry. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  entryHeap
	seen     map[string]bool

	offers     int64
	accepted   int64
	duplicates int64
}

// Stats reports cache activity counters.
type Stats struct {
	Offers     int64
	Accepted   int64
	Duplicates int64
	Size       int
}

// New builds a cache retaining up to capacity entries.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		seen:     make(map[string]bool, capacity),
	}
}

// Offer proposes a configuration with its objective value. It returns
// true if the entry was retained (either because the cache had room,
// or because it displaced the current worst entry), and false if the
// configuration is a duplicate of one already held or is worse than
// every entry already retained in a full cache.
func (c *Cache) Offer(objectiveValue float64, configuration []int) bool {
	key := configKey(configuration)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.offers++

	if c.seen[key] {
		c.duplicates++
		return false
	}

	entry := &Entry{Objective: objectiveValue, Configuration: append([]int(nil), configuration...)}

	if len(c.entries) < c.capacity {
		heap.Push(&c.entries, entry)
		c.seen[key] = true
		c.accepted++
		return true
	}

	worst := c.entries[0]
	if !objective.Less(objectiveValue, configuration, worst.Objective, worst.Configuration) {
		return false
	}

	delete(c.seen, configKey(worst.Configuration))
	heap.Pop(&c.entries)
	heap.Push(&c.entries, entry)
	c.seen[key] = true
	c.accepted++
	return true
}

// Merge offers every entry of other into c. Used to tree-reduce
// per-worker local caches into a single rank cache.
func (c *Cache) Merge(other *Cache) {
	other.mu.Lock()
	snapshot := make([]*Entry, len(other.entries))
	copy(snapshot, other.entries)
	other.mu.Unlock()

	for _, e := range snapshot {
		c.Offer(e.Objective, e.Configuration)
	}
}

// Drain returns every retained entry sorted best-first, with Rank
// assigned starting at 0 (0 = best). It does not clear the cache.
func (c *Cache) Drain() []Entry {
	c.mu.Lock()
	snapshot := make([]*Entry, len(c.entries))
	copy(snapshot, c.entries)
	c.mu.Unlock()

	sortBest(snapshot)

	out := make([]Entry, len(snapshot))
	for i, e := range snapshot {
		out[i] = Entry{Objective: e.Objective, Configuration: e.Configuration, Rank: i}
	}
	return out
}

// Size returns the number of entries currently retained.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear discards every retained entry and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.seen = make(map[string]bool, c.capacity)
	c.offers, c.accepted, c.duplicates = 0, 0, 0
}

// Stats reports the cache's activity counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Offers:     c.offers,
		Accepted:   c.accepted,
		Duplicates: c.duplicates,
		Size:       len(c.entries),
	}
}

func configKey(configuration []int) string {
	return fmt.Sprint(configuration)
}

func sortBest(entries []*Entry) {
	// insertion sort: K is small (a few hundred at most), and Drain is
	// called once per rank, not on the hot offer path.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && objective.Less(entries[j].Objective, entries[j].Configuration, entries[j-1].Objective, entries[j-1].Configuration); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// entryHeap is a max-heap over "badness": the worst retained entry
// (by objective.Less) sits at the root so Offer can evict it in
// O(log K) when a better configuration arrives.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	// i sorts first (toward the root) when i is worse than j, i.e.
	// when j is strictly better than i.
	return objective.Less(h[j].Objective, h[j].Configuration, h[i].Objective, h[i].Configuration)
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
