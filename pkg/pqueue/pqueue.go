// Package pqueue implements the flat-array priority queue stow's DAG
// walks and tag propagation use, grounded on
// original_source/src/pq.c's fsl_pq: a slice kept sorted ascending by
// priority, insert by linear scan + shift, extract-min by popping
// index 0 and shifting down. This is intentionally not a binary heap —
// the queues in play (DAG frontiers, propagation frontiers) are small,
// and the source is explicit that a sorted array wins at that scale.
package pqueue

// Entry is one (id, priority, payload) triple held by the queue.
type Entry struct {
	ID       int64
	Priority float64
	Data     any
}

// Queue is a min-priority queue of Entry values.
type Queue struct {
	entries []Entry
}

// Len returns the number of queued entries.
func (q *Queue) Len() int { return len(q.entries) }

// Insert adds (id, priority, data) to the queue, keeping entries sorted
// ascending by priority.
func (q *Queue) Insert(id int64, priority float64, data any) {
	i := 0
	for ; i < len(q.entries); i++ {
		if q.entries[i].Priority > priority {
			break
		}
	}
	q.entries = append(q.entries, Entry{})
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = Entry{ID: id, Priority: priority, Data: data}
}

// ExtractMin removes and returns the lowest-priority entry. ok is false
// if the queue was empty.
func (q *Queue) ExtractMin() (id int64, data any, ok bool) {
	if len(q.entries) == 0 {
		return 0, nil, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e.ID, e.Data, true
}

// Clear empties the queue.
func (q *Queue) Clear() { q.entries = nil }
