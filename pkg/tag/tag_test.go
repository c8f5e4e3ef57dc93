package tag

import (
	"testing"

	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	tags    map[string]*storage.Tag
	nextTag int64
	xrefs   map[int64]map[int64]*storage.Tagxref // rid -> tagid -> xref
	plinks  []*storage.Plink
	private map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		tags:    map[string]*storage.Tag{},
		xrefs:   map[int64]map[int64]*storage.Tagxref{},
		private: map[int64]bool{},
	}
}

func (m *memStore) FindTag(name string) (*storage.Tag, error) {
	if t, ok := m.tags[name]; ok {
		return t, nil
	}
	return nil, errs.New(errs.KindNotFound, "tag %s not found", name)
}

func (m *memStore) PutTag(t *storage.Tag) error {
	m.tags[t.Name] = t
	if t.TagID > m.nextTag {
		m.nextTag = t.TagID
	}
	return nil
}

func (m *memStore) ListTags() ([]*storage.Tag, error) {
	var out []*storage.Tag
	for _, t := range m.tags {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) PutTagxref(x *storage.Tagxref) error {
	if m.xrefs[x.RID] == nil {
		m.xrefs[x.RID] = map[int64]*storage.Tagxref{}
	}
	cp := *x
	m.xrefs[x.RID][x.TagID] = &cp
	return nil
}

func (m *memStore) TagxrefsForRID(rid int64) ([]*storage.Tagxref, error) {
	var out []*storage.Tagxref
	for _, x := range m.xrefs[rid] {
		out = append(out, x)
	}
	return out, nil
}

func (m *memStore) ChildrenOf(rid int64) ([]*storage.Plink, error) {
	var out []*storage.Plink
	for _, p := range m.plinks {
		if p.ParentRID == rid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) MarkPrivate(rid int64) error { m.private[rid] = true; return nil }

func (m *memStore) link(child, parent int64, isMerge bool) {
	m.plinks = append(m.plinks, &storage.Plink{ChildRID: child, ParentRID: parent, IsMerge: isMerge})
}

func TestInsertCreatesTagAndXref(t *testing.T) {
	m := newMemStore()
	tagID, err := Insert(m, TypeAdd, "milestone", "1.0", 0, 100, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tagID)
	xrefs, err := m.TagxrefsForRID(5)
	require.NoError(t, err)
	require.Len(t, xrefs, 1)
	assert.Equal(t, "1.0", xrefs[0].Value)
}

func TestInsertIsMtimeMonotonicIdempotent(t *testing.T) {
	m := newMemStore()
	_, err := Insert(m, TypeAdd, "milestone", "1.0", 0, 100, 5)
	require.NoError(t, err)
	_, err = Insert(m, TypeAdd, "milestone", "0.9", 0, 50, 5)
	require.NoError(t, err)

	xrefs, err := m.TagxrefsForRID(5)
	require.NoError(t, err)
	require.Len(t, xrefs, 1)
	assert.Equal(t, "1.0", xrefs[0].Value, "an older mtime must not overwrite a newer tag application")
}

func TestInsertPrivateTagMarksPrivate(t *testing.T) {
	m := newMemStore()
	_, err := Insert(m, TypeAdd, "private", "", 0, 1, 9)
	require.NoError(t, err)
	assert.True(t, m.private[9])
}

func TestPropagatePushesTagToChildren(t *testing.T) {
	m := newMemStore()
	m.link(2, 1, false)
	m.link(3, 2, false)

	tagID, err := Insert(m, TypePropagating, "branch", "feature", 1, 10, 1)
	require.NoError(t, err)

	xrefs2, err := m.TagxrefsForRID(2)
	require.NoError(t, err)
	require.Len(t, xrefs2, 1)
	assert.Equal(t, tagID, xrefs2[0].TagID)
	assert.Equal(t, "feature", xrefs2[0].Value)

	xrefs3, err := m.TagxrefsForRID(3)
	require.NoError(t, err)
	require.Len(t, xrefs3, 1)
	assert.Equal(t, "feature", xrefs3[0].Value)
}

func TestPropagateStopsAtMergeEdge(t *testing.T) {
	m := newMemStore()
	m.link(2, 1, false)
	m.link(3, 1, true)

	_, err := Insert(m, TypePropagating, "branch", "feature", 1, 10, 1)
	require.NoError(t, err)

	xrefs3, err := m.TagxrefsForRID(3)
	require.NoError(t, err)
	assert.Empty(t, xrefs3)
}

func TestPropagateAllRePropagatesExistingTags(t *testing.T) {
	m := newMemStore()
	m.link(2, 1, false)

	_, err := Insert(m, TypePropagating, "branch", "feature", 1, 10, 1)
	require.NoError(t, err)

	m.link(3, 2, false)
	require.NoError(t, PropagateAll(m, 2))

	xrefs3, err := m.TagxrefsForRID(3)
	require.NoError(t, err)
	require.Len(t, xrefs3, 1)
	assert.Equal(t, "feature", xrefs3[0].Value)
}

func TestBranchCreateAppliesBranchAndSymTags(t *testing.T) {
	m := newMemStore()
	require.NoError(t, BranchCreate(m, 1, "experiment", 10, false))

	xrefs, err := m.TagxrefsForRID(1)
	require.NoError(t, err)
	names := map[string]string{}
	for _, x := range xrefs {
		for name, tg := range m.tags {
			if tg.TagID == x.TagID {
				names[name] = x.Value
			}
		}
	}
	assert.Equal(t, "experiment", names["branch"])
	_, hasSym := names["sym-experiment"]
	assert.True(t, hasSym)
}

func TestBranchCreateCancelsPriorSymTags(t *testing.T) {
	m := newMemStore()
	_, err := Insert(m, TypeAdd, "sym-trunk", "", 0, 1, 1)
	require.NoError(t, err)

	require.NoError(t, BranchCreate(m, 1, "experiment", 10, false))

	xrefs, err := m.TagxrefsForRID(1)
	require.NoError(t, err)
	var symTrunkType int
	for _, x := range xrefs {
		if tg, ok := m.tags["sym-trunk"]; ok && tg.TagID == x.TagID {
			symTrunkType = x.TagType
		}
	}
	assert.Equal(t, int(TypeCancel), symTrunkType)
}
