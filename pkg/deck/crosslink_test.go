package deck

import (
	"testing"

	"github.com/cuemby/stow/pkg/content"
	"github.com/cuemby/stow/pkg/storage"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*storage.BoltStore, *content.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.NewBoltStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, content.New(s, 1<<20, 64)
}

func TestSaveAssignsRIDAndIsIdempotentByHash(t *testing.T) {
	s, c := openStore(t)

	d := &Deck{Kind: KindWiki, D: 1.0, L: "HomePage", HasW: true, W: []byte("hello")}
	rid1, err := d.Save(s, c, false)
	require.NoError(t, err)
	require.NotZero(t, rid1)

	d2 := &Deck{Kind: KindWiki, D: 1.0, L: "HomePage", HasW: true, W: []byte("hello")}
	rid2, err := d2.Save(s, c, false)
	require.NoError(t, err)
	require.Equal(t, rid1, rid2)
}

func TestSaveCheckinCrosslinksPlinkAndEvent(t *testing.T) {
	s, c := openStore(t)

	root := &Deck{Kind: KindCheckin, D: 1.0, HasU: true, U: "bob", HasC: true, C: "root"}
	rootRID, err := root.Save(s, c, false)
	require.NoError(t, err)

	rootHash, err := s.GetBlob(rootRID)
	require.NoError(t, err)

	child := &Deck{
		Kind: KindCheckin, D: 2.0, HasU: true, U: "bob", HasC: true, C: "child",
		P: []string{rootHash.Hash},
		F: []FCard{{Name: "a.txt", Hash: ""}},
	}
	childRID, err := child.Save(s, c, false)
	require.NoError(t, err)

	parents, err := s.ParentsOf(childRID)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	require.Equal(t, rootRID, parents[0].ParentRID)

	events, err := s.ListEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)

	leaf, err := s.IsLeaf(childRID)
	require.NoError(t, err)
	require.True(t, leaf)
	leaf, err = s.IsLeaf(rootRID)
	require.NoError(t, err)
	require.False(t, leaf)
}

func TestSaveControlArtifactAppliesTag(t *testing.T) {
	s, c := openStore(t)

	checkin := &Deck{Kind: KindCheckin, D: 1.0, HasC: true, C: "base"}
	rid, err := checkin.Save(s, c, false)
	require.NoError(t, err)
	blob, err := s.GetBlob(rid)
	require.NoError(t, err)

	ctrl := &Deck{
		Kind: KindControl, D: 2.0,
		T: []TCard{{Prefix: "*", Name: "release", Target: blob.Hash, Value: ""}},
	}
	_, err = ctrl.Save(s, c, false)
	require.NoError(t, err)

	xrefs, err := s.TagxrefsForRID(rid)
	require.NoError(t, err)
	require.Len(t, xrefs, 1)
}

func TestCrosslinkBeginEndBatchesLeafChecks(t *testing.T) {
	s, c := openStore(t)

	CrosslinkBegin()
	root := &Deck{Kind: KindCheckin, D: 1.0}
	rootRID, err := root.Save(s, c, false)
	require.NoError(t, err)
	require.NoError(t, CrosslinkEnd(s))

	leaf, err := s.IsLeaf(rootRID)
	require.NoError(t, err)
	require.True(t, leaf)
}
