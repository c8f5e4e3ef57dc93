package dag

import (
	"testing"

	"github.com/cuemby/stow/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	plinks  []*storage.Plink
	tagxref map[int64][]*storage.Tagxref
	mlinks  map[int64][]*storage.Mlink
	leaves  map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tagxref: map[int64][]*storage.Tagxref{},
		mlinks:  map[int64][]*storage.Mlink{},
		leaves:  map[int64]bool{},
	}
}

func (f *fakeStore) link(child, parent int64, isMerge bool) {
	f.plinks = append(f.plinks, &storage.Plink{ChildRID: child, ParentRID: parent, IsMerge: isMerge})
}

func (f *fakeStore) ParentsOf(rid int64) ([]*storage.Plink, error) {
	var out []*storage.Plink
	for _, p := range f.plinks {
		if p.ChildRID == rid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ChildrenOf(rid int64) ([]*storage.Plink, error) {
	var out []*storage.Plink
	for _, p := range f.plinks {
		if p.ParentRID == rid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPlinks() ([]*storage.Plink, error) { return f.plinks, nil }

func (f *fakeStore) TagxrefsForRID(rid int64) ([]*storage.Tagxref, error) {
	return f.tagxref[rid], nil
}

func (f *fakeStore) MlinksForManifest(mid int64) ([]*storage.Mlink, error) {
	return f.mlinks[mid], nil
}

func (f *fakeStore) MarkLeaf(rid int64) error   { f.leaves[rid] = true; return nil }
func (f *fakeStore) UnmarkLeaf(rid int64) error { delete(f.leaves, rid); return nil }
func (f *fakeStore) IsLeaf(rid int64) (bool, error) { return f.leaves[rid], nil }
func (f *fakeStore) ListLeaves() ([]int64, error) {
	var out []int64
	for rid := range f.leaves {
		out = append(out, rid)
	}
	return out, nil
}

func TestShortestPathLinearChain(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	f.link(3, 2, false)
	f.link(4, 3, false)

	path, ok, err := Shortest(f, 1, 4, true, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, path.Len())
	assert.Equal(t, int64(1), path.RID(0))
	assert.Equal(t, int64(4), path.RID(3))
}

func TestShortestPathNoRoute(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)

	_, ok, err := Shortest(f, 1, 99, true, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShortestPathSameNode(t *testing.T) {
	f := newFakeStore()
	path, ok, err := Shortest(f, 5, 5, true, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, path.Len())
}

func TestShortestPathAllowsReverse(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	f.link(3, 1, false)

	path, ok, err := Shortest(f, 2, 3, true, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, path.Len())
}

func TestIsLeafNoChildren(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	isLeaf, err := IsLeaf(f, 2)
	require.NoError(t, err)
	assert.True(t, isLeaf)
}

func TestIsLeafHasSameBranchChild(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	isLeaf, err := IsLeaf(f, 1)
	require.NoError(t, err)
	assert.False(t, isLeaf)
}

func TestIsLeafChildSwitchedBranch(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	f.tagxref[2] = []*storage.Tagxref{{TagID: branchTagID, RID: 2, Value: "feature"}}
	isLeaf, err := IsLeaf(f, 1)
	require.NoError(t, err)
	assert.True(t, isLeaf)
}

func TestRebuildLeafTable(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	f.link(3, 2, false)

	require.NoError(t, RebuildLeafTable(f))
	leaves, err := f.ListLeaves()
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, leaves)
}

func TestComputeLeavesFromRoot(t *testing.T) {
	f := newFakeStore()
	f.link(2, 1, false)
	f.link(3, 2, false)

	leaves, err := ComputeLeaves(f, 1, LeavesAll)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, leaves)
}

func TestFindFilenameChangesNoOp(t *testing.T) {
	f := newFakeStore()
	changes, err := FindFilenameChanges(f, 1, 1, true)
	require.NoError(t, err)
	assert.Nil(t, changes)
}
