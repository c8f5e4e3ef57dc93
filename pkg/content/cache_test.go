package content

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/cuemby/stow/pkg/buffer"
	"github.com/cuemby/stow/pkg/delta"
	"github.com/cuemby/stow/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	blobs   map[int64]*storage.Blob
	byHash  map[string]int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{blobs: map[int64]*storage.Blob{}, byHash: map[string]int64{}}
}

func (f *fakeBackend) PutBlob(b *storage.Blob) error {
	cp := *b
	f.blobs[b.RID] = &cp
	f.byHash[b.Hash] = b.RID
	return nil
}

func (f *fakeBackend) GetBlob(rid int64) (*storage.Blob, error) {
	b, ok := f.blobs[rid]
	if !ok {
		return nil, fmt.Errorf("rid %d not found", rid)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBackend) GetBlobByHash(hash string) (*storage.Blob, error) {
	rid, ok := f.byHash[hash]
	if !ok {
		return nil, fmt.Errorf("hash %s not found", hash)
	}
	return f.GetBlob(rid)
}

func (f *fakeBackend) DeleteBlob(rid int64) error {
	delete(f.blobs, rid)
	return nil
}

func TestPutGetLiteralRoundTrip(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)
	require.NoError(t, s.Put(1, []byte("hello world"), "hash1", 0))

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestPutDeltaAgainstSource(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)
	src := []byte("the quick brown fox jumps over the lazy dog repeatedly repeatedly")
	require.NoError(t, s.Put(1, src, "hash-src", 0))

	target := []byte("the quick brown fox jumps over the lazy cat repeatedly repeatedly yes")
	require.NoError(t, s.Put(2, target, "hash-tgt", 1))

	got, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	b, err := be.GetBlob(2)
	require.NoError(t, err)
	assert.True(t, b.IsDelta)
}

func TestGetByHash(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)
	require.NoError(t, s.Put(1, []byte("payload"), "abc", 0))

	got, err := s.GetByHash("abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestAvailableFollowsDeltaChain(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)
	require.NoError(t, s.Put(1, []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), "h1", 0))
	require.NoError(t, s.Put(2, []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab"), "h2", 1))

	ok, err := s.Available(2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAvailableReportsMissing(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)
	ok, err := s.Available(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEvictsOldestUnderEntryLimit(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 2)
	require.NoError(t, s.Put(1, []byte("one"), "h1", 0))
	require.NoError(t, s.Put(2, []byte("two"), "h2", 0))
	require.NoError(t, s.Put(3, []byte("three"), "h3", 0))

	assert.LessOrEqual(t, len(s.lines), 2)

	got, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "three", string(got))
}

// putRawBlob writes a blob straight to the backend, bypassing
// Store.Put's cache-the-decoded-artifact side effect, so Get is forced
// to actually walk the delta chain instead of hitting the resident
// cache on the first lookup.
func putRawBlob(t *testing.T, be *fakeBackend, rid int64, hash string, srcRID int64, isDelta bool, artifact []byte) {
	t.Helper()
	compressed, err := buffer.Compress(artifact)
	require.NoError(t, err)
	require.NoError(t, be.PutBlob(&storage.Blob{
		RID:     rid,
		Hash:    hash,
		Size:    int64(len(artifact)),
		SrcRID:  srcRID,
		IsDelta: isDelta,
		Content: compressed,
	}))
}

func TestGetWalksMultiHopDeltaChainIteratively(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)

	base := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 4)
	v2 := append(bytes.Clone(base), []byte("v2 tail")...)
	v3 := append(bytes.Clone(v2), []byte("v3 tail")...)
	v4 := append(bytes.Clone(v3), []byte("v4 tail")...)

	putRawBlob(t, be, 1, "h1", 0, false, base)
	putRawBlob(t, be, 2, "h2", 1, true, delta.Create(base, v2))
	putRawBlob(t, be, 3, "h3", 2, true, delta.Create(v2, v3))
	putRawBlob(t, be, 4, "h4", 3, true, delta.Create(v3, v4))

	got, err := s.Get(4)
	require.NoError(t, err)
	assert.Equal(t, v4, got)
}

func TestGetVerifyChecksumToggle(t *testing.T) {
	be := newFakeBackend()
	s := New(be, 1<<20, 100)

	src := []byte("the quick brown fox jumps over the lazy dog repeatedly repeatedly")
	target := []byte("the quick brown fox jumps over the lazy cat repeatedly repeatedly yes")
	dl := delta.Create(src, target)
	// Flip the last digit of the trailing checksum command (the byte
	// just before the ';' terminator) without disturbing how many
	// digits getInt consumes, so the delta still parses cleanly but
	// carries the wrong checksum value.
	pos := len(dl) - 2
	if dl[pos] == '0' {
		dl[pos] = '1'
	} else {
		dl[pos] = '0'
	}

	putRawBlob(t, be, 1, "h1", 0, false, src)
	putRawBlob(t, be, 2, "h2", 1, true, dl)

	_, err := s.Get(2)
	assert.Error(t, err, "corrupted checksum should fail verification by default")

	s.SetVerifyChecksum(false)
	got, err := s.Get(2)
	require.NoError(t, err, "checksum verification disabled should skip the corrupted check")
	assert.Equal(t, target, got)
}
