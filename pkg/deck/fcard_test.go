package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFSeekFindsSequentialAndRandom(t *testing.T) {
	cards := []FCard{
		{Name: "a.txt", Hash: "h1"},
		{Name: "b.txt", Hash: "h2"},
		{Name: "c.txt", Hash: "h3"},
	}
	c := NewFCursor(cards)

	got, ok := c.FSeek("b.txt")
	assert.True(t, ok)
	assert.Equal(t, "h2", got.Hash)

	got, ok = c.FSeek("c.txt")
	assert.True(t, ok)
	assert.Equal(t, "h3", got.Hash)

	_, ok = c.FSeek("missing.txt")
	assert.False(t, ok)

	got, ok = c.FSeek("a.txt")
	assert.True(t, ok)
	assert.Equal(t, "h1", got.Hash)
}

func TestMergeFCardsDeltaWins(t *testing.T) {
	baseline := []FCard{
		{Name: "a.txt", Hash: "base-a"},
		{Name: "b.txt", Hash: "base-b"},
		{Name: "c.txt", Hash: "base-c"},
	}
	delta := []FCard{
		{Name: "a.txt", Hash: "delta-a"}, // updated
		{Name: "b.txt", Hash: ""},        // removed
		{Name: "d.txt", Hash: "delta-d"}, // added
	}

	merged := MergeFCards(baseline, delta)
	byName := map[string]string{}
	for _, fc := range merged {
		byName[fc.Name] = fc.Hash
	}

	assert.Equal(t, "delta-a", byName["a.txt"])
	_, removed := byName["b.txt"]
	assert.False(t, removed)
	assert.Equal(t, "base-c", byName["c.txt"])
	assert.Equal(t, "delta-d", byName["d.txt"])
	assert.Len(t, merged, 3)
}
