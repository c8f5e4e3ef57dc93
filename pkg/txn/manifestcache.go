package txn

import "github.com/cuemby/stow/pkg/deck"

// manifestCacheSlots is a judgment call: small enough that a linear
// scan is cheaper than a map, big enough to cover the common case of
// walking a short chain of recent checkins (diff, merge, leaf-check)
// without re-parsing each one from its blob bytes.
const manifestCacheSlots = 4

type manifestEntry struct {
	rid int64
	d   *deck.Deck
}

// ManifestCache is a tiny LRU over parsed checkin manifests, keyed by
// RID.
type ManifestCache struct {
	entries []manifestEntry // least-recently-used first
}

// Get returns the cached deck for rid, if present, marking it
// most-recently-used.
func (c *ManifestCache) Get(rid int64) (*deck.Deck, bool) {
	for i, e := range c.entries {
		if e.rid == rid {
			c.touch(i)
			return e.d, true
		}
	}
	return nil, false
}

// Put caches d under rid, evicting the least-recently-used entry if
// the cache is already full.
func (c *ManifestCache) Put(rid int64, d *deck.Deck) {
	for i, e := range c.entries {
		if e.rid == rid {
			c.entries[i].d = d
			c.touch(i)
			return
		}
	}
	if len(c.entries) >= manifestCacheSlots {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, manifestEntry{rid: rid, d: d})
}

func (c *ManifestCache) touch(i int) {
	e := c.entries[i]
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	c.entries = append(c.entries, e)
}
