package deck

import (
	"github.com/cuemby/stow/pkg/content"
	"github.com/cuemby/stow/pkg/dag"
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/storage"
	"github.com/cuemby/stow/pkg/tag"
)

// batchMode, when true, tells Crosslink to skip the immediate
// leaf-check pass (CrosslinkBegin/CrosslinkEnd bracket a bulk import
// so that cost is paid once at the end instead of once per artifact).
// Grounded on the teacher's WarrenFSM.Restore loop-of-creates shape:
// a batch of state-machine events applied in one pass, with
// consistency checks deferred to the end of the batch rather than
// run after every single event.
var batchMode bool
var batchLeafChecks []int64

// CrosslinkBegin starts a batched import: Crosslink calls made before
// the matching CrosslinkEnd queue their leaf-checks instead of running
// them immediately.
func CrosslinkBegin() {
	batchMode = true
	batchLeafChecks = nil
}

// CrosslinkEnd closes a batched import, running every deferred
// leaf-check exactly once per distinct rid.
func CrosslinkEnd(store storage.Store) error {
	batchMode = false
	seen := map[int64]bool{}
	for _, rid := range batchLeafChecks {
		if seen[rid] {
			continue
		}
		seen[rid] = true
		if err := dag.LeafCheck(store, rid); err != nil {
			return err
		}
	}
	batchLeafChecks = nil
	return nil
}

// Save assembles the deck's canonical bytes, stores them as a new
// artifact (or returns the existing RID if this exact content already
// exists), and crosslinks the derived tables. This is the three-step
// pipeline the specification describes: unshuffle, content-put,
// crosslink.
func (d *Deck) Save(store storage.Store, cstore *content.Store, private bool) (int64, error) {
	if err := validateCardinality(d, d.cardCounts()); err != nil {
		return 0, err
	}

	raw := d.Unshuffle()
	hash := content.Hash(raw)

	if existing, err := store.GetBlobByHash(hash); err == nil {
		return existing.RID, nil
	} else if !errs.Is(err, errs.KindNotFound) {
		return 0, err
	}

	rid, err := store.NextRID()
	if err != nil {
		return 0, err
	}
	d.RID = rid

	if err := cstore.Put(rid, raw, hash, 0); err != nil {
		return 0, err
	}
	if private {
		if err := store.MarkPrivate(rid); err != nil {
			return 0, err
		}
	}

	if err := Crosslink(store, d); err != nil {
		return 0, err
	}
	return rid, nil
}

// Crosslink populates every derived table from a saved deck's cards:
// plink from P-cards, mlink/filename from F-cards, tagxref from
// T-cards (propagated through pkg/tag), an event row, and
// type-specific dispatch for tickets/forum posts. Checkin leaf-checks
// run immediately unless a CrosslinkBegin/CrosslinkEnd batch is open.
func Crosslink(store storage.Store, d *Deck) error {
	for i, parentHash := range d.P {
		parent, err := store.GetBlobByHash(parentHash)
		if err != nil {
			return errs.Wrap(errs.KindConsistency, err, "resolve parent %s", parentHash)
		}
		if err := store.PutPlink(&storage.Plink{
			ChildRID:  d.RID,
			ParentRID: parent.RID,
			IsMerge:   i > 0,
			Mtime:     d.D,
		}); err != nil {
			return err
		}
	}

	if d.Kind == KindCheckin {
		if err := crosslinkFiles(store, d); err != nil {
			return err
		}
	}

	for _, tc := range d.T {
		if err := crosslinkTag(store, d, tc); err != nil {
			return err
		}
	}

	if err := crosslinkEvent(store, d); err != nil {
		return err
	}

	switch d.Kind {
	case KindTicket:
		if err := crosslinkTicket(store, d); err != nil {
			return err
		}
	case KindForum:
		if err := crosslinkForum(store, d); err != nil {
			return err
		}
	}

	if d.Kind == KindCheckin {
		if batchMode {
			batchLeafChecks = append(batchLeafChecks, d.RID)
			for _, parentHash := range d.P {
				if parent, err := store.GetBlobByHash(parentHash); err == nil {
					batchLeafChecks = append(batchLeafChecks, parent.RID)
				}
			}
		} else {
			if err := dag.LeafCheck(store, d.RID); err != nil {
				return err
			}
			for _, parentHash := range d.P {
				parent, err := store.GetBlobByHash(parentHash)
				if err != nil {
					continue
				}
				if err := dag.LeafCheck(store, parent.RID); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func crosslinkFiles(store storage.Store, d *Deck) error {
	for _, fc := range d.F {
		fn, err := store.FindFilename(fc.Name)
		if errs.Is(err, errs.KindNotFound) {
			fnid, allocErr := store.NextRID()
			if allocErr != nil {
				return allocErr
			}
			fn = &storage.Filename{FNID: fnid, Name: fc.Name}
			if err := store.PutFilename(fn); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var fid int64
		if fc.Hash != "" {
			blob, err := store.GetBlobByHash(fc.Hash)
			if err != nil {
				return errs.Wrap(errs.KindConsistency, err, "resolve file blob %s", fc.Hash)
			}
			fid = blob.RID
		}

		var pid int64
		if fc.PriorName != "" {
			if priorFn, err := store.FindFilename(fc.PriorName); err == nil {
				if existing := latestMlinkFor(store, priorFn.FNID); existing != nil {
					pid = existing.FID
				}
			}
		} else if existing := latestMlinkFor(store, fn.FNID); existing != nil {
			pid = existing.FID
		}

		if err := store.PutMlink(&storage.Mlink{
			MID:     d.RID,
			FID:     fid,
			PID:     pid,
			FNID:    fn.FNID,
			PermChg: fc.Perm != "",
		}); err != nil {
			return err
		}
	}
	return nil
}

func latestMlinkFor(store storage.Store, fnid int64) *storage.Mlink {
	links, err := store.MlinksForFilename(fnid)
	if err != nil || len(links) == 0 {
		return nil
	}
	return links[len(links)-1]
}

func crosslinkTag(store storage.Store, d *Deck, tc TCard) error {
	var targetRID int64
	if tc.Target == "" {
		targetRID = d.RID
	} else {
		target, err := store.GetBlobByHash(tc.Target)
		if err != nil {
			return errs.Wrap(errs.KindConsistency, err, "resolve tag target %s", tc.Target)
		}
		targetRID = target.RID
	}

	var tagType tag.Type
	switch tc.Prefix {
	case "-":
		tagType = tag.TypeCancel
	case "*":
		tagType = tag.TypePropagating
	default:
		tagType = tag.TypeAdd
	}

	tagID, err := tag.Insert(store, tagType, tc.Name, tc.Value, d.RID, d.D, targetRID)
	if err != nil {
		return err
	}
	if tagType != tag.TypeCancel {
		if err := tag.Propagate(store, tagType, targetRID, tagID, targetRID, tc.Value, d.D); err != nil {
			return err
		}
	}
	return nil
}

func crosslinkEvent(store storage.Store, d *Deck) error {
	if d.Kind == KindCluster {
		return nil
	}
	return store.PutEvent(&storage.Event{
		RID:     d.RID,
		Type:    d.Kind.String(),
		Mtime:   d.D,
		User:    d.U,
		Comment: d.C,
	})
}

func crosslinkTicket(store storage.Store, d *Deck) error {
	fields := map[string]string{}
	if existing, err := store.GetTicket(d.K); err == nil {
		for k, v := range existing.Fields {
			fields[k] = v
		}
	}
	for _, jc := range d.J {
		if jc.Remove {
			delete(fields, jc.Field)
		} else {
			fields[jc.Field] = jc.Value
		}
	}
	if err := store.PutTicketChange(&storage.TicketChange{
		RID:    d.RID,
		TktID:  d.K,
		Mtime:  d.D,
		Fields: fields,
	}); err != nil {
		return err
	}
	return store.PutTicket(&storage.Ticket{
		TktID:  d.K,
		Fields: fields,
		Mtime:  d.D,
	})
}

func crosslinkForum(store storage.Store, d *Deck) error {
	post := &storage.ForumPost{
		RID:   d.RID,
		User:  d.U,
		Title: d.H,
	}
	if thread, err := store.GetBlobByHash(d.G); err == nil {
		post.ThreadRID = thread.RID
	} else {
		post.ThreadRID = d.RID // this post is itself the thread root
	}
	if d.I != "" {
		if parent, err := store.GetBlobByHash(d.I); err == nil {
			post.InReplyTo = parent.RID
		}
	}
	return store.PutForumPost(post)
}
