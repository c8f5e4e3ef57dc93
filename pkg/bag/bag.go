// Package bag implements an ordered-iteration sparse set of positive
// integer RIDs, used throughout stow wherever a small dedup or
// membership set is needed (the artifact cache's known-missing/
// known-available sets, the tag propagation frontier, leaf-recheck
// queues).
//
// It is grounded on original_source/src/bag.c's fsl_id_bag: open
// addressing, linear probing, hash = id*101 mod capacity, a tombstone
// slot (-1) for deletions, grow at load > 1/2, shrink at load < 1/8
// once capacity exceeds 40.
package bag

// Bag is a set of positive int64 IDs. The zero value is an empty,
// ready-to-use Bag.
type Bag struct {
	list  []int64
	used  int // live + tombstoned slots
	count int // live slots
}

const tombstone = -1

func hash(id int64, capacity int) int {
	h := (id * 101) % int64(capacity)
	if h < 0 {
		h += int64(capacity)
	}
	return int(h)
}

// Len returns the number of live entries.
func (b *Bag) Len() int { return b.count }

func (b *Bag) resize(newCap int) {
	old := b.list
	b.list = make([]int64, newCap)
	b.used = 0
	b.count = 0
	for _, e := range old {
		if e > 0 {
			h := hash(e, newCap)
			for b.list[h] != 0 {
				h++
				if h >= newCap {
					h = 0
				}
			}
			b.list[h] = e
			b.used++
			b.count++
		}
	}
}

// Insert adds id to the bag. id must be positive; Insert is a no-op if
// id is already present.
func (b *Bag) Insert(id int64) {
	if id <= 0 {
		return
	}
	if len(b.list) == 0 || b.used+1 >= len(b.list)/2 {
		n := len(b.list) * 2
		if n == 0 {
			n = 30
		}
		b.resize(n)
	}
	h := hash(id, len(b.list))
	for b.list[h] > 0 && b.list[h] != id {
		h++
		if h >= len(b.list) {
			h = 0
		}
	}
	if b.list[h] <= 0 {
		if b.list[h] == 0 {
			b.used++
		}
		b.list[h] = id
		b.count++
	}
}

// Contains reports whether id is in the bag.
func (b *Bag) Contains(id int64) bool {
	if id <= 0 || len(b.list) == 0 || b.used == 0 {
		return false
	}
	h := hash(id, len(b.list))
	for b.list[h] != 0 && b.list[h] != id {
		h++
		if h >= len(b.list) {
			h = 0
		}
	}
	return b.list[h] == id
}

// Remove deletes id from the bag, returning whether it was present.
func (b *Bag) Remove(id int64) bool {
	if id <= 0 || len(b.list) == 0 || b.used == 0 {
		return false
	}
	cap := len(b.list)
	h := hash(id, cap)
	for b.list[h] != 0 && b.list[h] != id {
		h++
		if h >= cap {
			h = 0
		}
	}
	if b.list[h] != id {
		return false
	}
	next := h + 1
	if next >= cap {
		next = 0
	}
	if b.list[next] == 0 {
		b.list[h] = 0
		b.used--
	} else {
		b.list[h] = tombstone
	}
	b.count--
	if b.count == 0 {
		for i := range b.list {
			b.list[i] = 0
		}
		b.used = 0
	} else if cap > 40 && b.count < cap/8 {
		b.resize(cap / 2)
	}
	return true
}

// First returns an arbitrary live entry, or 0 if the bag is empty.
// Combined with Next it yields a stable iteration order between
// inserts, matching fsl_id_bag_first/fsl_id_bag_next.
func (b *Bag) First() int64 {
	if len(b.list) == 0 || b.count == 0 {
		return 0
	}
	for _, e := range b.list {
		if e > 0 {
			return e
		}
	}
	return 0
}

// Next returns the live entry following prev in slot order, or 0 once
// iteration is exhausted.
func (b *Bag) Next(prev int64) int64 {
	if len(b.list) == 0 {
		return 0
	}
	start := hash(prev, len(b.list))
	for b.list[start] != prev {
		start++
		if start >= len(b.list) {
			return 0
		}
	}
	for i := start + 1; i < len(b.list); i++ {
		if b.list[i] > 0 {
			return b.list[i]
		}
	}
	return 0
}

// Clear empties the bag, releasing its backing storage.
func (b *Bag) Clear() {
	b.list = nil
	b.used = 0
	b.count = 0
}

// Each calls fn for every live entry, in slot order. It stops early if
// fn returns false.
func (b *Bag) Each(fn func(id int64) bool) {
	for _, e := range b.list {
		if e > 0 {
			if !fn(e) {
				return
			}
		}
	}
}
