package diff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinLines(lines []Line) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l.Text)
	}
	return buf.Bytes()
}

func TestSplitLinesPreservesBytes(t *testing.T) {
	data := []byte("one\ntwo\nthree")
	lines := SplitLines(data)
	require.Len(t, lines, 3)
	assert.Equal(t, data, joinLines(lines))
}

func TestEditScriptIdenticalInputIsAllCopy(t *testing.T) {
	a := SplitLines([]byte("a\nb\nc\n"))
	b := SplitLines([]byte("a\nb\nc\n"))
	edits := EditScript(a, b)
	require.Len(t, edits, 1)
	assert.Equal(t, Triple{Copy: 3}, edits[0])
}

func TestEditScriptDetectsInsertion(t *testing.T) {
	a := SplitLines([]byte("a\nb\nc\n"))
	b := SplitLines([]byte("a\nb\nx\nc\n"))
	edits := EditScript(a, b)

	var totalCopy, totalDel, totalIns int
	for _, e := range edits {
		totalCopy += e.Copy
		totalDel += e.Delete
		totalIns += e.Insert
	}
	assert.Equal(t, 3, totalCopy)
	assert.Equal(t, 0, totalDel)
	assert.Equal(t, 1, totalIns)
}

func TestEditScriptDetectsDeletion(t *testing.T) {
	a := SplitLines([]byte("a\nb\nc\n"))
	b := SplitLines([]byte("a\nc\n"))
	edits := EditScript(a, b)

	var totalDel int
	for _, e := range edits {
		totalDel += e.Delete
	}
	assert.Equal(t, 1, totalDel)
}

func TestEditScriptEmptyInputs(t *testing.T) {
	assert.Empty(t, EditScript(nil, nil))
}

func TestUnifiedRendersHunkHeader(t *testing.T) {
	a := SplitLines([]byte("a\nb\nc\n"))
	b := SplitLines([]byte("a\nb\nx\nc\n"))
	edits := EditScript(a, b)

	var buf bytes.Buffer
	require.NoError(t, Unified(&buf, a, b, edits, 3, false))
	out := buf.String()
	assert.Contains(t, out, "@@ -1,3 +1,4 @@")
	assert.Contains(t, out, "+x\n")
	assert.Contains(t, out, " a\n")
}

func TestUnifiedColorWrapsAddedLines(t *testing.T) {
	a := SplitLines([]byte("a\n"))
	b := SplitLines([]byte("x\n"))
	edits := EditScript(a, b)

	var buf bytes.Buffer
	require.NoError(t, Unified(&buf, a, b, edits, 3, true))
	assert.Contains(t, buf.String(), ansiAdd)
	assert.Contains(t, buf.String(), ansiRm)
}
