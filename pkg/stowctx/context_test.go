package stowctx

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/stow/pkg/config"
	"github.com/cuemby/stow/pkg/errs"
)

func openTestContext(t *testing.T) *Context {
	t.Helper()
	cfg := config.Default(filepath.Join(t.TempDir(), "data"))
	ctx, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestOpenWiresStoreContentAndTxn(t *testing.T) {
	ctx := openTestContext(t)
	assert.NotNil(t, ctx.Store())
	assert.NotNil(t, ctx.Content())
	assert.NotNil(t, ctx.Txn())
}

func TestLastErrorRoundTripsStowError(t *testing.T) {
	ctx := openTestContext(t)
	assert.Nil(t, ctx.LastError())

	ctx.SetLastError(errs.New(errs.KindNotFound, "rid %d missing", 7))
	got := ctx.LastError()
	require.NotNil(t, got)
	assert.Equal(t, errs.KindNotFound, got.Kind)

	ctx.SetLastError(nil)
	assert.Nil(t, ctx.LastError())
}

func TestLastErrorWrapsPlainError(t *testing.T) {
	ctx := openTestContext(t)
	ctx.SetLastError(errors.New("boom"))
	got := ctx.LastError()
	require.NotNil(t, got)
	assert.Equal(t, errs.KindNone, got.Kind)
}
