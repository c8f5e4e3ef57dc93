// Package txn implements stow's transaction/commit-hook layer: nested
// Begin/Commit/Rollback over a single underlying storage.Store, with
// before-commit hooks and deferred leaf-recheck/verify-at-commit
// queues that only run once, at the outermost commit.
//
// There is no single original_source file this maps onto — it is the
// Go-native answer to the concurrency model's note that leaf rechecks
// and verify-at-commit work are "dispatched at the outermost commit",
// plus a home for the fsl_cx scratchpad pool and manifest cache
// described in original_source/include/fossil-scm/fossil-internal.h.
package txn

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/stow/pkg/bag"
	"github.com/cuemby/stow/pkg/content"
	"github.com/cuemby/stow/pkg/dag"
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/log"
	"github.com/cuemby/stow/pkg/storage"
)

// Manager owns the single active transaction nesting stack for one
// repository context. It is not safe for concurrent use from more
// than one goroutine, matching the single-threaded-cooperative model
// the rest of stow assumes.
type Manager struct {
	mu      sync.Mutex
	store   storage.Store
	content *content.Store

	depth   int
	current *Txn

	Scratch  ScratchPool
	Manifests ManifestCache
}

// NewManager builds a transaction manager over store and its artifact
// cache.
func NewManager(store storage.Store, cstore *content.Store) *Manager {
	return &Manager{store: store, content: cstore}
}

// Txn is one (possibly nested) transaction handle. Nested Begin calls
// return the same Txn as the outermost one; only the outermost Commit
// actually runs the before-commit hooks and deferred queues.
type Txn struct {
	mgr *Manager
	ID  uuid.UUID

	beforeCommit   []func() error
	leafRecheck    bag.Bag
	verifyAtCommit bag.Bag
}

// Begin starts (or joins) a transaction. ctx carries no cancellation
// semantics at this layer yet — stow has no async operations to
// cancel — but is accepted for API stability as that changes.
func (m *Manager) Begin(_ context.Context) (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.depth++
	if m.current == nil {
		m.current = &Txn{mgr: m, ID: uuid.New()}
	}
	return m.current, nil
}

// RegisterBeforeCommit queues fn to run once, in registration order,
// right before the outermost Commit does its real work. If any hook
// returns an error, the whole transaction rolls back and that error
// is returned from Commit.
func (t *Txn) RegisterBeforeCommit(fn func() error) {
	t.beforeCommit = append(t.beforeCommit, fn)
}

// QueueLeafRecheck marks rid for a leaf-table recomputation at the
// outermost commit. Safe to call more than once per rid per
// transaction; the bag dedupes.
func (t *Txn) QueueLeafRecheck(rid int64) {
	t.leafRecheck.Insert(rid)
}

// QueueVerifyAtCommit marks rid's freshly-written blob for a
// hash round-trip check at the outermost commit.
func (t *Txn) QueueVerifyAtCommit(rid int64) {
	t.verifyAtCommit.Insert(rid)
}

// Commit closes one level of nesting. Only once depth reaches zero
// does it run the before-commit hooks, drain the leaf-recheck and
// verify-at-commit queues, and log the transaction's correlation ID.
func (t *Txn) Commit() error {
	m := t.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != t {
		return errs.New(errs.KindMisuse, "commit on a transaction that is not the active one")
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	defer func() { m.current = nil }()

	for _, fn := range t.beforeCommit {
		if err := fn(); err != nil {
			m.depth = 0
			return errs.Wrap(errs.KindConsistency, err, "before-commit hook failed, rolled back")
		}
	}

	var recheckErr error
	t.leafRecheck.Each(func(rid int64) bool {
		if err := dag.LeafCheck(m.store, rid); err != nil {
			recheckErr = err
			return false
		}
		return true
	})
	if recheckErr != nil {
		return recheckErr
	}

	var verifyErr error
	t.verifyAtCommit.Each(func(rid int64) bool {
		if err := m.verifyBlob(rid); err != nil {
			verifyErr = err
			return false
		}
		return true
	})
	if verifyErr != nil {
		return verifyErr
	}

	log.Logger.Info().
		Str("txn_id", t.ID.String()).
		Int("leaf_rechecks", t.leafRecheck.Len()).
		Int("verified", t.verifyAtCommit.Len()).
		Msg("transaction committed")
	return nil
}

// Rollback abandons the entire transaction, regardless of nesting
// depth: a rollback at any level unwinds the whole thing, since a
// partially-applied nested transaction has no well-defined state to
// resume at.
func (t *Txn) Rollback() error {
	m := t.mgr
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != t {
		return errs.New(errs.KindMisuse, "rollback on a transaction that is not the active one")
	}
	log.Logger.Warn().Str("txn_id", t.ID.String()).Msg("transaction rolled back")
	m.depth = 0
	m.current = nil
	return nil
}

// verifyBlob re-decodes rid's content and recomputes its hash,
// catching a corrupted write (bad delta, truncated compression) before
// the transaction that produced it is allowed to commit.
func (m *Manager) verifyBlob(rid int64) error {
	blob, err := m.store.GetBlob(rid)
	if err != nil {
		return err
	}
	decoded, err := m.content.Get(rid)
	if err != nil {
		return errs.Wrap(errs.KindConsistency, err, "verify-at-commit: decode rid %d", rid)
	}
	if got := content.Hash(decoded); got != blob.Hash {
		return errs.New(errs.KindChecksumMismatch, "verify-at-commit: rid %d hash mismatch: stored %s, recomputed %s", rid, blob.Hash, got)
	}
	return nil
}
