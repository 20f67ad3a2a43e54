package perms

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// projectionCache memoizes per-group-set rule projections. Keys are the
// canonical form of the actor's group set, so two actors with identical
// memberships share one entry.
//
// The workload is read-heavy and write-rare: entries are only written on
// a miss, and the whole cache is dropped on any rule mutation. A plain
// RWMutex map is enough at that write rate.
type projectionCache struct {
	mu      sync.RWMutex
	entries map[string][]Rule
}

func newProjectionCache() *projectionCache {
	return &projectionCache{entries: make(map[string][]Rule)}
}

// projectionKey canonicalizes a group set: sorted, deduplicated,
// comma-joined gids.
func projectionKey(gids []int) string {
	if len(gids) == 0 {
		return ""
	}
	sorted := make([]int, len(gids))
	copy(sorted, gids)
	sort.Ints(sorted)

	var b strings.Builder
	last := 0
	for i, gid := range sorted {
		if i > 0 {
			if gid == last {
				continue
			}
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(gid))
		last = gid
	}
	return b.String()
}

func (c *projectionCache) get(key string) ([]Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.entries[key]
	return rules, ok
}

func (c *projectionCache) put(key string, rules []Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = rules
}

// invalidate drops every entry. Global invalidation is deliberate:
// mutations are rare relative to reads and precision buys nothing here.
func (c *projectionCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]Rule)
}

func (c *projectionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
