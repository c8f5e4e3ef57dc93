package dag

import (
	"github.com/cuemby/stow/pkg/bag"
	"github.com/cuemby/stow/pkg/metrics"
	"github.com/cuemby/stow/pkg/storage"
)

// LeafStore is the storage surface leaf maintenance needs.
type LeafStore interface {
	PLinks
	TagxrefsForRID(rid int64) ([]*storage.Tagxref, error)
	MarkLeaf(rid int64) error
	UnmarkLeaf(rid int64) error
	IsLeaf(rid int64) (bool, error)
	ListLeaves() ([]int64, error)
	ListPlinks() ([]*storage.Plink, error)
}

// branchOf returns rid's branch tag value, defaulting to "trunk" when
// it carries none, mirroring the COALESCE(..., 'trunk') idiom used
// throughout original_source/src/leaf.c.
func branchOf(store LeafStore, rid int64) (string, error) {
	xrefs, err := store.TagxrefsForRID(rid)
	if err != nil {
		return "", err
	}
	for _, x := range xrefs {
		if x.TagID == branchTagID {
			return x.Value, nil
		}
	}
	return "trunk", nil
}

// IsLeaf reports whether rid has no child on the same branch: none of
// its children exist, or every child has switched to a different
// branch.
func IsLeaf(store LeafStore, rid int64) (bool, error) {
	children, err := store.ChildrenOf(rid)
	if err != nil {
		return false, err
	}
	if len(children) == 0 {
		return true, nil
	}
	myBranch, err := branchOf(store, rid)
	if err != nil {
		return false, err
	}
	for _, c := range children {
		childBranch, err := branchOf(store, c.ChildRID)
		if err != nil {
			return false, err
		}
		if childBranch == myBranch {
			return false, nil
		}
	}
	return true, nil
}

// LeafCheck recomputes rid's membership in the leaf table and updates
// it (mirrors fsl_repo_leaf_check).
func LeafCheck(store LeafStore, rid int64) error {
	isLeaf, err := IsLeaf(store, rid)
	if err != nil {
		return err
	}
	if isLeaf {
		if err := store.MarkLeaf(rid); err != nil {
			return err
		}
	} else if err := store.UnmarkLeaf(rid); err != nil {
		return err
	}
	leaves, err := store.ListLeaves()
	if err == nil {
		metrics.LeafTableSize.Set(float64(len(leaves)))
	}
	return nil
}

// PendingLeafChecks defers LeafCheck calls (a new check-in retires its
// parents' leaf status, but deciding that can wait until commit time,
// same as fsl_repo_leaf_eventually_check / fsl_repo_leaf_do_pending_checks).
type PendingLeafChecks struct {
	pending bag.Bag
}

// EventuallyCheck queues rid and every direct parent of rid for a
// leaf-status recheck at the next DoPendingChecks.
func EventuallyCheck(store LeafStore, p *PendingLeafChecks, rid int64) error {
	p.pending.Insert(rid)
	parents, err := store.ParentsOf(rid)
	if err != nil {
		return err
	}
	for _, par := range parents {
		p.pending.Insert(par.ParentRID)
	}
	return nil
}

// DoPendingChecks runs LeafCheck for every RID queued by
// EventuallyCheck and empties the queue.
func DoPendingChecks(store LeafStore, p *PendingLeafChecks) error {
	var todo []int64
	p.pending.Each(func(rid int64) bool {
		todo = append(todo, rid)
		return true
	})
	for _, rid := range todo {
		if err := LeafCheck(store, rid); err != nil {
			return err
		}
	}
	p.pending.Clear()
	return nil
}

// RebuildLeafTable recomputes the entire leaf table from scratch:
// every check-in with no same-branch child. Mirrors
// fsl_repo_leaves_rebuild's set-difference query.
func RebuildLeafTable(store LeafStore) error {
	existing, err := store.ListLeaves()
	if err != nil {
		return err
	}
	for _, rid := range existing {
		if err := store.UnmarkLeaf(rid); err != nil {
			return err
		}
	}

	plinks, err := store.ListPlinks()
	if err != nil {
		return err
	}
	candidates := map[int64]bool{}
	isParent := map[int64]bool{}
	for _, p := range plinks {
		candidates[p.ChildRID] = true
		isParent[p.ParentRID] = true
	}

	branchCache := map[int64]string{}
	branch := func(rid int64) (string, error) {
		if b, ok := branchCache[rid]; ok {
			return b, nil
		}
		b, err := branchOf(store, rid)
		if err != nil {
			return "", err
		}
		branchCache[rid] = b
		return b, nil
	}

	var leaves []int64
	for cid := range candidates {
		if !isParent[cid] {
			leaves = append(leaves, cid)
			continue
		}
	}
	// A child that is itself a parent is still a leaf if every one of
	// its children has switched branches.
	for cid := range candidates {
		if isParent[cid] {
			ok, err := isLeafAmong(store, branch, cid, plinks)
			if err != nil {
				return err
			}
			if ok {
				leaves = append(leaves, cid)
			}
		}
	}

	for _, rid := range leaves {
		if err := store.MarkLeaf(rid); err != nil {
			return err
		}
	}
	metrics.LeafTableSize.Set(float64(len(leaves)))
	return nil
}

func isLeafAmong(store LeafStore, branch func(int64) (string, error), rid int64, plinks []*storage.Plink) (bool, error) {
	myBranch, err := branch(rid)
	if err != nil {
		return false, err
	}
	for _, p := range plinks {
		if p.ParentRID != rid {
			continue
		}
		childBranch, err := branch(p.ChildRID)
		if err != nil {
			return false, err
		}
		if childBranch == myBranch {
			return false, nil
		}
	}
	return true, nil
}
