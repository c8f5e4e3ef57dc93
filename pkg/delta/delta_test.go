package delta

import (
	"testing"

	"github.com/cuemby/stow/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateApplyRoundTrip(t *testing.T) {
	src := []byte("the quick brown fox jumps over the lazy dog. the quick brown fox naps.")
	out := []byte("the quick brown fox jumps over the lazy cat. the quick brown fox naps happily.")

	d := Create(src, out)
	got, err := Apply(src, d)
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestCreateApplyIdenticalInputs(t *testing.T) {
	src := []byte("no changes here, just a plain old unmodified block of text content")
	d := Create(src, src)
	got, err := Apply(src, d)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestCreateApplyEmptyTarget(t *testing.T) {
	src := []byte("source material that is reasonably long for hashing purposes here")
	out := []byte{}
	d := Create(src, out)
	got, err := Apply(src, d)
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestCreateApplyShortSourceIsPureLiteral(t *testing.T) {
	src := []byte("tiny")
	out := []byte("a completely different and much longer target payload")
	d := Create(src, out)
	got, err := Apply(src, d)
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestAppliedSizeMatchesTargetLength(t *testing.T) {
	src := []byte("source text that is long enough to build a landmark table from")
	out := []byte("source text that is long enough to build a landmark table from, extended")
	d := Create(src, out)
	size, err := AppliedSize(d)
	require.NoError(t, err)
	assert.Equal(t, int64(len(out)), size)
}

func TestApplyRejectsBadChecksum(t *testing.T) {
	src := []byte("source text that is long enough to build a landmark table from")
	out := []byte("source text that is long enough to build a landmark table, mutated")
	d := Create(src, out)
	d[len(d)-2] = '0'
	_, err := Apply(src, d)
	require.Error(t, err)
	assert.Equal(t, errs.KindChecksumMismatch, errs.KindOf(err))
}

func TestApplyRejectsTruncatedDelta(t *testing.T) {
	src := []byte("source text that is long enough to build a landmark table from")
	out := []byte("source text that is long enough to build a landmark table, changed a bit")
	d := Create(src, out)
	_, err := Apply(src, d[:len(d)-3])
	require.Error(t, err)
}

func TestIsDelta(t *testing.T) {
	d := Create([]byte("0123456789abcdef0123456789abcdef"), []byte("hello world"))
	assert.True(t, IsDelta(d))
	assert.False(t, IsDelta([]byte("not a delta at all")))
}
