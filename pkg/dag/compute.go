package dag

import "github.com/cuemby/stow/pkg/bag"

// CloseMode filters ComputeLeaves' result by a check-in's closed-tag
// status, mirroring fsl_leaves_compute_e.
type CloseMode int

const (
	// LeavesAll returns every discovered leaf, open or closed.
	LeavesAll CloseMode = iota
	// LeavesOpen excludes leaves tagged "closed".
	LeavesOpen
	// LeavesClosed returns only leaves tagged "closed".
	LeavesClosed
)

const closedTagID int64 = 2 // stow's reserved tag ID for "closed", mirroring FSL_TAGID_CLOSED

// ComputeLeaves finds every leaf reachable forward from vid: a
// descendant with no further same-branch (or same-fork) descendant.
// It mirrors fsl_leaves_compute's breadth-first walk over plink
// children, treating a child that starts a new branch as terminating
// the current branch's exploration from this root.
func ComputeLeaves(store LeafStore, vid int64, mode CloseMode) ([]int64, error) {
	if vid <= 0 {
		leaves, err := store.ListLeaves()
		if err != nil {
			return nil, err
		}
		return filterByClose(store, leaves, mode)
	}

	var seen, pending bag.Bag
	pending.Insert(vid)
	var out []int64

	for pending.Len() > 0 {
		rid := pending.First()
		pending.Remove(rid)

		children, err := store.ChildrenOf(rid)
		if err != nil {
			return nil, err
		}
		myBranch, err := branchOf(store, rid)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, c := range children {
			childBranch, err := branchOf(store, c.ChildRID)
			if err != nil {
				return nil, err
			}
			if !c.IsMerge || childBranch == myBranch {
				seen.Insert(c.ChildRID)
				pending.Insert(c.ChildRID)
				count++
			}
		}
		if count == 0 {
			isLeaf, err := IsLeaf(store, rid)
			if err != nil {
				return nil, err
			}
			if !isLeaf {
				count++
			}
		}
		if count == 0 {
			out = append(out, rid)
		}
	}

	return filterByClose(store, out, mode)
}

func filterByClose(store LeafStore, rids []int64, mode CloseMode) ([]int64, error) {
	if mode == LeavesAll {
		return rids, nil
	}
	var out []int64
	for _, rid := range rids {
		xrefs, err := store.TagxrefsForRID(rid)
		if err != nil {
			return nil, err
		}
		closed := false
		for _, x := range xrefs {
			if x.TagID == closedTagID && x.TagType > 0 {
				closed = true
				break
			}
		}
		if (mode == LeavesClosed) == closed {
			out = append(out, rid)
		}
	}
	return out, nil
}
