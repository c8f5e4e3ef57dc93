package merge3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeCleanNonOverlappingEdits(t *testing.T) {
	pivot := []byte("one\ntwo\nthree\n")
	v1 := []byte("ONE\ntwo\nthree\n")
	v2 := []byte("one\ntwo\nTHREE\n")

	out, conflicts := Merge(pivot, v1, v2)
	require.Equal(t, 0, conflicts)
	assert.Equal(t, "ONE\ntwo\nTHREE\n", string(out))
}

func TestMergeIdenticalEditsNoConflict(t *testing.T) {
	pivot := []byte("one\ntwo\nthree\n")
	v1 := []byte("one\nTWO\nthree\n")
	v2 := []byte("one\nTWO\nthree\n")

	out, conflicts := Merge(pivot, v1, v2)
	require.Equal(t, 0, conflicts)
	assert.Equal(t, "one\nTWO\nthree\n", string(out))
}

func TestMergeConflictingEditsProduceMarkers(t *testing.T) {
	pivot := []byte("one\ntwo\nthree\n")
	v1 := []byte("one\nTWO-LOCAL\nthree\n")
	v2 := []byte("one\nTWO-OTHER\nthree\n")

	out, conflicts := Merge(pivot, v1, v2)
	require.Equal(t, 1, conflicts)
	text := string(out)
	assert.Contains(t, text, Markers[0])
	assert.Contains(t, text, Markers[1])
	assert.Contains(t, text, Markers[2])
	assert.Contains(t, text, Markers[3])
	assert.Contains(t, text, "TWO-LOCAL")
	assert.Contains(t, text, "TWO-OTHER")
}

func TestContainsConflictMarkerDetectsStandaloneLine(t *testing.T) {
	text := []byte("some text\n" + Markers[0] + "\nmore\n")
	assert.True(t, ContainsConflictMarker(text))
}

func TestContainsConflictMarkerIgnoresPartialMatch(t *testing.T) {
	text := []byte("some text\nnot a marker line\n")
	assert.False(t, ContainsConflictMarker(text))
}

func TestMergeNoChangesIsPivot(t *testing.T) {
	pivot := []byte("a\nb\nc\n")
	out, conflicts := Merge(pivot, pivot, pivot)
	require.Equal(t, 0, conflicts)
	assert.Equal(t, string(pivot), string(out))
}
