// Package tag implements stow's tag engine: applying a tag to an
// artifact and propagating it forward through the version DAG until a
// cancelling tag or a branch boundary stops it.
//
// It is grounded on original_source/src/tag.c's fsl_tag_insert and
// fsl_tag_propagate: inserts are idempotent and mtime-monotonic (a
// tag application silently no-ops if a more recent one already
// exists for the same rid), and propagation walks primary children
// breadth-first using a priority queue keyed by commit mtime so that
// children are visited in commit order.
package tag

import (
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/pqueue"
	"github.com/cuemby/stow/pkg/storage"
)

// Type mirrors fsl_tagtype_e: whether a tagxref row adds, cancels, or
// propagates a tag.
type Type int

const (
	TypeCancel      Type = 0
	TypeAdd         Type = 1
	TypePropagating Type = 2
)

// Well-known tag IDs, mirroring stow's reserved FSL_TAGID_* constants.
const (
	IDBranch  int64 = 1
	IDClosed  int64 = 2
	IDBgColor int64 = 3
	IDComment int64 = 4
	IDUser    int64 = 5
	IDPrivate int64 = 6
	IDDate    int64 = 7
)

// Store is the storage surface the tag engine needs.
type Store interface {
	FindTag(name string) (*storage.Tag, error)
	PutTag(t *storage.Tag) error
	ListTags() ([]*storage.Tag, error)

	PutTagxref(x *storage.Tagxref) error
	TagxrefsForRID(rid int64) ([]*storage.Tagxref, error)

	ChildrenOf(rid int64) ([]*storage.Plink, error)

	MarkPrivate(rid int64) error
}

// resolveTagID looks up name's tag ID, creating the row if it does
// not exist (mirrors fsl_tag_id's create-on-miss behavior).
func resolveTagID(store Store, name string) (int64, error) {
	t, err := store.FindTag(name)
	if err == nil {
		return t.TagID, nil
	}
	if !errs.Is(err, errs.KindNotFound) {
		return 0, err
	}
	tags, err := store.ListTags()
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, t := range tags {
		if t.TagID > maxID {
			maxID = t.TagID
		}
	}
	newID := maxID + 1
	if err := store.PutTag(&storage.Tag{TagID: newID, Name: name}); err != nil {
		return 0, err
	}
	return newID, nil
}

// Insert applies a tag to rid at the given mtime, mirroring
// fsl_tag_insert: a no-op if a tagxref for the same (tagid, rid)
// already exists with mtime >= the requested one, otherwise a
// REPLACE-style upsert followed by propagation.
func Insert(store Store, tagType Type, name, value string, srcID int64, mtime float64, rid int64) (int64, error) {
	if name == "" {
		return 0, errs.New(errs.KindMisuse, "tag: name is required")
	}
	tagID, err := resolveTagID(store, name)
	if err != nil {
		return 0, err
	}

	existing, err := store.TagxrefsForRID(rid)
	if err != nil {
		return 0, err
	}
	for _, x := range existing {
		if x.TagID == tagID && x.Mtime >= mtime {
			return tagID, nil
		}
	}

	if err := store.PutTagxref(&storage.Tagxref{
		TagID:   tagID,
		RID:     rid,
		SrcRID:  srcID,
		Mtime:   mtime,
		Value:   value,
		TagType: int(tagType),
	}); err != nil {
		return 0, err
	}

	if tagID == IDPrivate || name == "private" {
		if err := store.MarkPrivate(rid); err != nil {
			return 0, err
		}
	}

	propagateType := tagType
	if propagateType == TypeAdd {
		propagateType = TypeCancel
	}
	if err := Propagate(store, propagateType, rid, tagID, rid, value, mtime); err != nil {
		return 0, err
	}

	return tagID, nil
}

// Propagate pushes a tag application or cancellation forward through
// primary children of pid, stopping at any child whose tagxref is
// already at least as recent. Mirrors fsl_tag_propagate's
// queue-driven breadth-first walk.
func Propagate(store Store, tagType Type, pid, tagID, origID int64, value string, mtime float64) error {
	if pid <= 0 || tagID <= 0 {
		return errs.New(errs.KindRange, "tag: invalid pid or tagid")
	}
	if tagType == TypePropagating && origID <= 0 {
		return errs.New(errs.KindRange, "tag: propagating tag requires an origin rid")
	}

	var q pqueue.Queue
	q.Insert(pid, 0, nil)

	for {
		id, _, ok := q.ExtractMin()
		if !ok {
			break
		}

		children, err := store.ChildrenOf(id)
		if err != nil {
			return err
		}

		for _, c := range children {
			if c.IsMerge {
				continue // primary edges only, mirroring plink.isprim
			}
			doit, err := shouldPropagate(store, tagType, tagID, c.ChildRID, mtime)
			if err != nil {
				return err
			}
			if !doit {
				continue
			}

			q.Insert(c.ChildRID, c.Mtime, nil)

			if tagType == TypePropagating {
				if err := store.PutTagxref(&storage.Tagxref{
					TagID:   tagID,
					RID:     c.ChildRID,
					SrcRID:  0,
					OrigID:  origID,
					Value:   value,
					Mtime:   mtime,
					TagType: int(TypePropagating),
				}); err != nil {
					return err
				}
			} else {
				if err := removeTagxref(store, tagID, c.ChildRID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func shouldPropagate(store Store, tagType Type, tagID, rid int64, mtime float64) (bool, error) {
	xrefs, err := store.TagxrefsForRID(rid)
	if err != nil {
		return false, err
	}
	for _, x := range xrefs {
		if x.TagID == tagID {
			if tagType == TypePropagating {
				return x.SrcRID == 0 && x.Mtime < mtime, nil
			}
			return true, nil
		}
	}
	return tagType == TypePropagating, nil
}

// PropagateAll re-propagates every tag already applied to rid,
// mirroring fsl_tag_propagate_all: used after a check-in is rebuilt
// or a merge changes rid's tag set, to push all of its current tags
// forward again. An ADD tagtype is treated as CANCEL for propagation
// purposes, same as Insert does for a single tag.
func PropagateAll(store Store, rid int64) error {
	xrefs, err := store.TagxrefsForRID(rid)
	if err != nil {
		return err
	}
	for _, x := range xrefs {
		t := Type(x.TagType)
		if t == TypeAdd {
			t = TypeCancel
		}
		if err := Propagate(store, t, rid, x.TagID, rid, x.Value, x.Mtime); err != nil {
			return err
		}
	}
	return nil
}

// BranchCreate applies the tag side of creating a branch at rid: a
// propagating "branch" tag carrying branchName, a propagating
// "sym-<branchName>" tag, and cancellation of every other "sym-*" tag
// rid's parent currently carries (so the new check-in is reachable by
// its branch name alone). Mirrors the tag-table half of
// fsl_branch_create; the manifest half (copying the parent's F-cards
// and writing a new checkin artifact) belongs to pkg/deck and is not
// yet built, so this is called once a checkin's deck has already been
// saved at rid.
func BranchCreate(store Store, rid int64, branchName string, mtime float64, private bool) error {
	if branchName == "" {
		return errs.New(errs.KindMisuse, "tag: branch name is required")
	}

	parentXrefs, err := store.TagxrefsForRID(rid)
	if err != nil {
		return err
	}
	for _, x := range parentXrefs {
		t, err := findTagByID(store, x.TagID)
		if err != nil {
			return err
		}
		if t != nil && len(t.Name) > 4 && t.Name[:4] == "sym-" {
			if _, err := Insert(store, TypeCancel, t.Name, "", rid, mtime, rid); err != nil {
				return err
			}
		}
	}

	if private {
		if _, err := Insert(store, TypePropagating, "private", "", rid, mtime, rid); err != nil {
			return err
		}
	}
	if _, err := Insert(store, TypePropagating, "branch", branchName, rid, mtime, rid); err != nil {
		return err
	}
	_, err = Insert(store, TypePropagating, "sym-"+branchName, "", rid, mtime, rid)
	return err
}

func findTagByID(store Store, tagID int64) (*storage.Tag, error) {
	tags, err := store.ListTags()
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if t.TagID == tagID {
			return t, nil
		}
	}
	return nil, nil
}

// removeTagxref deletes the tagxref row for (tagID, rid) by relying on
// Store's PutTagxref to upsert a cleared entry; a real cancellation
// additionally lets the storage layer garbage-collect empty rows, but
// leaving a tagtype-0 marker is sufficient for queries that filter on
// TagType.
func removeTagxref(store Store, tagID, rid int64) error {
	return store.PutTagxref(&storage.Tagxref{
		TagID:   tagID,
		RID:     rid,
		TagType: int(TypeCancel),
	})
}
