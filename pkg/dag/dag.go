// Package dag implements stow's version-DAG queries: shortest path
// between two check-ins, leaf computation, and filename-change
// tracking along a path.
//
// It is grounded on original_source/src/vpath.c (fsl_vpath_shortest,
// fsl_cx_find_filename_changes) and original_source/src/leaf.c
// (fsl_rid_is_leaf, fsl_repo_leaves_rebuild, fsl_leaves_compute). The
// C code builds its path as a linked list of heap-allocated nodes
// threaded through raw pointers (pFrom/pTo/pPeer); this package keeps
// that "arena of nodes with predecessor links" shape but stores nodes
// in a single slice and references them by int32 index, per the
// spec's redesign note against raw-pointer graphs.
package dag

import (
	"github.com/cuemby/stow/pkg/bag"
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/storage"
)

const noIndex int32 = -1

const branchTagID int64 = 1 // stow's reserved tag ID for "branch", mirroring FSL_TAGID_BRANCH

// node is one step of a discovered path. from indexes the predecessor
// in the arena (or noIndex for the path's start); fromIsParent records
// whether that predecessor is this node's DAG parent (as opposed to a
// child, when the walk is allowed to move in reverse).
type node struct {
	rid          int64
	from         int32
	fromIsParent bool
}

// Path is a discovered route through the version DAG, oldest-first
// after Shortest returns it (the C code walks backward from the
// target and explicitly reverses the list; this type is returned
// already in forward order).
type Path struct {
	arena []node
	order []int32 // arena indices in forward (root-to-target) order
}

// Len returns the number of check-ins on the path, including both
// endpoints.
func (p *Path) Len() int { return len(p.order) }

// RID returns the check-in at position i (0-based, 0 is the start).
func (p *Path) RID(i int) int64 { return p.arena[p.order[i]].rid }

// FromIsParent reports whether position i's predecessor is its parent
// (true) or its child (false, only possible when the walk allowed
// reverse movement).
func (p *Path) FromIsParent(i int) bool { return p.arena[p.order[i]].fromIsParent }

// PLinks is the subset of storage.Store's plink queries path-finding needs.
type PLinks interface {
	ParentsOf(rid int64) ([]*storage.Plink, error)
	ChildrenOf(rid int64) ([]*storage.Plink, error)
}

// Shortest finds the shortest route from 'from' to 'to' through the
// version DAG. directOnly restricts traversal to primary (non-merge)
// edges; oneWayOnly restricts it to forward (parent-to-child) edges.
// It returns a nil Path with ok=false if no route exists.
func Shortest(store PLinks, from, to int64, directOnly, oneWayOnly bool) (*Path, bool, error) {
	if from <= 0 {
		return nil, false, errs.New(errs.KindRange, "invalid 'from' rid: %d", from)
	}
	if to <= 0 {
		return nil, false, errs.New(errs.KindRange, "invalid 'to' rid: %d", to)
	}

	var arena []node
	seen := bag.Bag{}

	arena = append(arena, node{rid: from, from: noIndex})
	seen.Insert(from)
	if from == to {
		return &Path{arena: arena, order: []int32{0}}, true, nil
	}

	frontier := []int32{0}
	for len(frontier) > 0 {
		var next []int32
		for _, pi := range frontier {
			cur := arena[pi].rid

			type edge struct {
				rid      int64
				isParent bool
			}
			var edges []edge

			children, err := store.ChildrenOf(cur)
			if err != nil {
				return nil, false, err
			}
			for _, c := range children {
				if directOnly && c.IsMerge {
					continue
				}
				edges = append(edges, edge{rid: c.ChildRID, isParent: true})
			}

			if !oneWayOnly {
				parents, err := store.ParentsOf(cur)
				if err != nil {
					return nil, false, err
				}
				for _, p := range parents {
					if directOnly && p.IsMerge {
						continue
					}
					edges = append(edges, edge{rid: p.ParentRID, isParent: false})
				}
			}

			for _, e := range edges {
				if seen.Contains(e.rid) {
					continue
				}
				seen.Insert(e.rid)
				idx := int32(len(arena))
				arena = append(arena, node{rid: e.rid, from: pi, fromIsParent: e.isParent})
				if e.rid == to {
					return &Path{arena: arena, order: backtrack(arena, idx)}, true, nil
				}
				next = append(next, idx)
			}
		}
		frontier = next
	}
	return nil, false, nil
}

func backtrack(arena []node, end int32) []int32 {
	var rev []int32
	for i := end; i != noIndex; i = arena[i].from {
		rev = append(rev, i)
	}
	order := make([]int32, len(rev))
	for i, v := range rev {
		order[len(rev)-1-i] = v
	}
	return order
}

// FilenameChange is one (originalFNID, newFNID) rename pair discovered
// along a path.
type FilenameChange struct {
	OriginalFNID int64
	NewFNID      int64
}

// Mlinks is the subset of storage.Store FindFilenameChanges needs.
type Mlinks interface {
	MlinksForManifest(mid int64) ([]*storage.Mlink, error)
}

// FindFilenameChanges walks the shortest path from `from` to `to` and
// reports every filename that was renamed along the way, coalescing a
// chain of renames of the same file into a single origin->final pair.
func FindFilenameChanges(store interface {
	PLinks
	Mlinks
}, from, to int64, allowReverse bool) ([]FilenameChange, error) {
	if from == to {
		return nil, nil
	}
	path, ok, err := Shortest(store, from, to, true, !allowReverse)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	type tracked struct {
		origin, current int64
	}
	var all []*tracked
	curByName := map[int64]*tracked{}

	for i := 0; i < path.Len(); i++ {
		rid := path.RID(i)
		fromParent := path.FromIsParent(i)
		if i > 0 {
			// Mirrors the C loop's "skip nodes where the parent is not on
			// the path" guard: only manifests whose edge to the next node
			// is a forward (parent->child) step contribute rename rows.
			if !fromParent && (i+1 >= path.Len() || path.FromIsParent(i+1)) {
				continue
			}
		}
		mlinks, err := store.MlinksForManifest(rid)
		if err != nil {
			return nil, err
		}
		for _, m := range mlinks {
			if m.PID == 0 && m.FID != 0 {
				continue
			}
			pfnid, fnid := m.FNID, int64(0)
			if !fromParent {
				pfnid, fnid = fnid, pfnid
			}
			t, ok := curByName[pfnid]
			if !ok && fnid > 0 {
				t = &tracked{origin: pfnid, current: pfnid}
				all = append(all, t)
			}
			if t != nil {
				t.current = fnid
				curByName[fnid] = t
			}
		}
	}

	var out []FilenameChange
	for _, t := range all {
		if t.origin != 0 && t.current != 0 {
			out = append(out, FilenameChange{OriginalFNID: t.origin, NewFNID: t.current})
		}
	}
	return out, nil
}
