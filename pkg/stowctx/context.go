// Package stowctx provides the process-scoped handle every other
// operation hangs off of: the open storage, the artifact cache, the
// transaction manager, configuration, and the last error a caller can
// poll for.
//
// The "one struct holds the store, every subsystem, and every
// operation hangs off it" shape is grounded on the teacher's
// pkg/manager.Manager, down to NewManager's MkdirAll-then-open-store
// sequencing and the Shutdown-closes-everything pattern — generalized
// from a Raft cluster manager to a single-process repository handle.
package stowctx

import (
	"errors"
	"os"
	"sync"

	"github.com/cuemby/stow/pkg/config"
	"github.com/cuemby/stow/pkg/content"
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/storage"
	"github.com/cuemby/stow/pkg/txn"
)

// Context is the handle a stow process opens once and threads through
// every operation. It is not safe for concurrent use by more than one
// goroutine at a time, matching the single-threaded cooperative model
// the rest of the module assumes.
type Context struct {
	cfg     config.Config
	store   *storage.BoltStore
	content *content.Store
	txn     *txn.Manager

	mu       sync.Mutex
	lastErr  *errs.Error
}

// Open creates (if necessary) cfg.DataDir and opens the bbolt-backed
// store, artifact cache, and transaction manager over it.
func Open(cfg config.Config) (*Context, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "create data directory %s", cfg.DataDir)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, errs.Wrap(errs.KindDB, err, "open store at %s", cfg.DataDir)
	}

	cstore := content.New(store, cfg.CacheSizeLimitBytes, cfg.CacheEntryLimit)
	cstore.SetVerifyChecksum(cfg.VerifyDeltaChecksum)
	mgr := txn.NewManager(store, cstore)

	return &Context{
		cfg:     cfg,
		store:   store,
		content: cstore,
		txn:     mgr,
	}, nil
}

// Store returns the underlying blob/link store.
func (c *Context) Store() *storage.BoltStore { return c.store }

// Content returns the artifact cache layered over Store.
func (c *Context) Content() *content.Store { return c.content }

// Txn returns the transaction manager operations should Begin/Commit
// against.
func (c *Context) Txn() *txn.Manager { return c.txn }

// Config returns the configuration this context was opened with.
func (c *Context) Config() config.Config { return c.cfg }

// SetLastError records err as the most recent failure seen by any
// operation run against this context, for callers (notably cmd/stow)
// that want to inspect it after a command returns a plain bool/exit
// code. Passing nil clears it.
func (c *Context) SetLastError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.lastErr = nil
		return
	}
	var e *errs.Error
	if errors.As(err, &e) {
		c.lastErr = e
		return
	}
	c.lastErr = errs.Wrap(errs.KindNone, err, "%s", err.Error())
}

// LastError returns the most recently recorded error, or nil if none
// has been set (or it was cleared) since the context opened.
func (c *Context) LastError() *errs.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close releases the underlying store's file handle.
func (c *Context) Close() error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Close(); err != nil {
		return errs.Wrap(errs.KindIO, err, "close store")
	}
	return nil
}
