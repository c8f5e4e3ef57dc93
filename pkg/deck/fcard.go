package deck

import "sort"

// FCursor accelerates repeated lookups into a sorted F-card list: a
// binary search on the first miss, then a one-step optimistic check
// for the common case of sequential, already-sorted access (e.g.
// walking a manifest's files in the same order they were added).
// Grounded on the specification's description of the delta manifest
// F-card merge's cursor-based seek.
type FCursor struct {
	cards []FCard
	pos   int
}

// NewFCursor wraps an F-card list assumed to already be sorted by
// name ascending (the parser enforces this on load).
func NewFCursor(cards []FCard) *FCursor {
	return &FCursor{cards: cards}
}

// FSeek returns the card named name, or false if no such file exists
// in this list.
func (c *FCursor) FSeek(name string) (FCard, bool) {
	if n := len(c.cards); n > 0 {
		if c.pos < n && c.cards[c.pos].Name == name {
			return c.cards[c.pos], true
		}
		if c.pos+1 < n && c.cards[c.pos+1].Name == name {
			c.pos++
			return c.cards[c.pos], true
		}
	}
	i := sort.Search(len(c.cards), func(i int) bool { return c.cards[i].Name >= name })
	if i < len(c.cards) && c.cards[i].Name == name {
		c.pos = i
		return c.cards[i], true
	}
	return FCard{}, false
}

// MergeFCards merges a delta manifest's F-card list against its
// baseline's: for each pathname, the delta's card wins if present; a
// delta card with an empty hash means the file was removed; otherwise
// the baseline's card is kept. The result is sorted by name.
func MergeFCards(baseline, delta []FCard) []FCard {
	deltaCur := NewFCursor(delta)
	byName := make(map[string]FCard, len(baseline)+len(delta))

	for _, b := range baseline {
		if dc, ok := deltaCur.FSeek(b.Name); ok {
			if dc.Hash == "" {
				continue // removed
			}
			byName[b.Name] = dc
		} else {
			byName[b.Name] = b
		}
	}
	baseCur := NewFCursor(baseline)
	for _, dc := range delta {
		if dc.Hash == "" {
			continue
		}
		if _, ok := baseCur.FSeek(dc.Name); !ok {
			byName[dc.Name] = dc
		}
	}

	merged := make([]FCard, 0, len(byName))
	for _, fc := range byName {
		merged = append(merged, fc)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged
}
