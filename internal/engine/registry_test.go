package engine

import (
	"testing"

	"github.com/danmuck/xformctl/internal/schema"
	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGet(t *testing.T) {
	testlog.Start(t)
	var seen *schema.Catalog
	f := FactoryFunc(func(c *schema.Catalog) (Env, error) {
		seen = c
		return nil, nil
	})
	Register("test-engine", f)

	got, err := Get("test-engine")
	require.NoError(t, err)
	catalog := schema.NewCatalog()
	_, err = got.NewEnv(catalog)
	require.NoError(t, err)
	assert.Same(t, catalog, seen)
	assert.Contains(t, Names(), "test-engine")
}

func TestGetUnknown(t *testing.T) {
	testlog.Start(t)
	_, err := Get("does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}
