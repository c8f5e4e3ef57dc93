package pqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertMaintainsAscendingOrder(t *testing.T) {
	var q Queue
	q.Insert(1, 5.0, nil)
	q.Insert(2, 1.0, nil)
	q.Insert(3, 3.0, nil)
	assert.Equal(t, 3, q.Len())

	id, _, ok := q.ExtractMin()
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)

	id, _, ok = q.ExtractMin()
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)

	id, _, ok = q.ExtractMin()
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	assert.Equal(t, 0, q.Len())
}

func TestExtractMinOnEmptyQueue(t *testing.T) {
	var q Queue
	_, _, ok := q.ExtractMin()
	assert.False(t, ok)
}

func TestInsertCarriesPayload(t *testing.T) {
	var q Queue
	q.Insert(42, 2.0, "propagate-tag")
	_, data, ok := q.ExtractMin()
	assert.True(t, ok)
	assert.Equal(t, "propagate-tag", data)
}

func TestTiesPreserveInsertionOrder(t *testing.T) {
	var q Queue
	q.Insert(1, 1.0, nil)
	q.Insert(2, 1.0, nil)
	q.Insert(3, 1.0, nil)

	id, _, _ := q.ExtractMin()
	assert.Equal(t, int64(1), id)
	id, _, _ = q.ExtractMin()
	assert.Equal(t, int64(2), id)
	id, _, _ = q.ExtractMin()
	assert.Equal(t, int64(3), id)
}

func TestClear(t *testing.T) {
	var q Queue
	q.Insert(1, 1.0, nil)
	q.Insert(2, 2.0, nil)
	q.Clear()
	assert.Equal(t, 0, q.Len())
}
