package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewBoltStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetBlobByRIDAndHash(t *testing.T) {
	s := openTestStore(t)
	b := &Blob{RID: 1, Hash: "abc123", Size: 42, Content: []byte("x")}
	require.NoError(t, s.PutBlob(b))

	got, err := s.GetBlob(1)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Hash)

	byHash, err := s.GetBlobByHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), byHash.RID)
}

func TestGetBlobNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBlob(99)
	assert.Error(t, err)
}

func TestPlinkParentsAndChildren(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutPlink(&Plink{ChildRID: 2, ParentRID: 1}))
	require.NoError(t, s.PutPlink(&Plink{ChildRID: 3, ParentRID: 1}))
	require.NoError(t, s.PutPlink(&Plink{ChildRID: 3, ParentRID: 2, IsMerge: true}))

	children, err := s.ChildrenOf(1)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	parents, err := s.ParentsOf(3)
	require.NoError(t, err)
	assert.Len(t, parents, 2)
}

func TestFilenameRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutFilename(&Filename{FNID: 1, Name: "src/main.go"}))
	f, err := s.FindFilename("src/main.go")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.FNID)
}

func TestTagAndTagxref(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTag(&Tag{TagID: 1, Name: "trunk"}))
	found, err := s.FindTag("trunk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.TagID)

	require.NoError(t, s.PutTagxref(&Tagxref{TagID: 1, RID: 10, Mtime: 100.0}))
	require.NoError(t, s.PutTagxref(&Tagxref{TagID: 1, RID: 11, Mtime: 101.0}))
	xrefs, err := s.TagxrefsForTag(1)
	require.NoError(t, err)
	assert.Len(t, xrefs, 2)
}

func TestLeafMembership(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MarkLeaf(5))
	ok, err := s.IsLeaf(5)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.UnmarkLeaf(5))
	ok, err = s.IsLeaf(5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsentAndUnclustered(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MarkUnsent(1))
	require.NoError(t, s.MarkUnsent(2))
	list, err := s.ListUnsent()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.ClearUnsent(1))
	list, err = s.ListUnsent()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestForumThreading(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutForumPost(&ForumPost{RID: 1, ThreadRID: 1, Title: "root"}))
	require.NoError(t, s.PutForumPost(&ForumPost{RID: 2, ThreadRID: 1, InReplyTo: 1}))
	posts, err := s.ThreadPosts(1)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestTicketChanges(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutTicket(&Ticket{TktID: "tkt1", Fields: map[string]string{"title": "bug"}}))
	require.NoError(t, s.PutTicketChange(&TicketChange{RID: 1, TktID: "tkt1", Fields: map[string]string{"status": "open"}}))
	require.NoError(t, s.PutTicketChange(&TicketChange{RID: 2, TktID: "tkt1", Fields: map[string]string{"status": "closed"}}))

	changes, err := s.ChangesForTicket("tkt1")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}
