package schema

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveIsMemoizedPerPath(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	reg := NewRegistry(catalog).WithLogger(testlog.Logger(t))
	path := copyFixture(t, "composed.yaml")

	ns, err := reg.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, "urn:composed", ns)
	assert.Equal(t, 1, catalog.Len())

	// The second call must not read the file again.
	require.NoError(t, os.Remove(path))
	again, err := reg.Resolve(path)
	require.NoError(t, err)
	assert.Equal(t, ns, again)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, 1, reg.Len())
}

func TestResolveDataIsMemoizedPerKey(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	reg := NewRegistry(catalog)
	data, err := os.ReadFile(filepath.Join("testdata", "simple.yaml"))
	require.NoError(t, err)
	const key = "/opt/models/simple.jar!model/simple.yaml"

	ns, err := reg.ResolveData(key, data)
	require.NoError(t, err)
	assert.Equal(t, "urn:simple", ns)

	// Cached by key: later payloads are not parsed.
	again, err := reg.ResolveData(key, []byte("not: [valid"))
	require.NoError(t, err)
	assert.Equal(t, ns, again)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{key}, reg.Paths())
	assert.Equal(t, 1, catalog.Len())

	_, err = reg.ResolveData("", data)
	assert.ErrorIs(t, err, ErrSchemaLoad)

	_, err = reg.ResolveData("bad.jar!x.yaml", []byte("kind: Schema\n"))
	var missing *SchemaMissingNamespaceError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, reg.Len())
}

func TestResolveRelativeAndAbsolutePathsShareCache(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	reg := NewRegistry(catalog)
	rel := filepath.Join("testdata", "simple.yaml")
	abs, err := filepath.Abs(rel)
	require.NoError(t, err)

	a, err := reg.Resolve(rel)
	require.NoError(t, err)
	b, err := reg.Resolve(abs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{abs}, reg.Paths())
}

func TestResolveConcurrentRegistersOnce(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	reg := NewRegistry(catalog)
	path := copyFixture(t, "composed.yaml")

	var wg sync.WaitGroup
	results := make([]string, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = reg.Resolve(path)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "urn:composed", results[i])
	}
	assert.Equal(t, 1, catalog.Len())
}

func TestResolveMissingNamespace(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry(NewCatalog())

	_, err := reg.Resolve(filepath.Join("testdata", "package_first.yaml"))
	var missing *SchemaMissingNamespaceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Package", missing.Kind)
	assert.True(t, errors.Is(err, ErrMissingNamespace))

	for _, content := range []string{"", "kind: Schema\nname: NoNS\n", "- just\n- a list\n"} {
		_, err := reg.Resolve(writeSchema(t, content))
		assert.ErrorIs(t, err, ErrMissingNamespace, "content=%q", content)
	}
	assert.Equal(t, 0, reg.Catalog().Len())
}

func TestResolveLoadErrors(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry(NewCatalog())

	_, err := reg.Resolve(filepath.Join(t.TempDir(), "absent.yaml"))
	var loadErr *SchemaLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cases := map[string]string{
		"malformed":      "kind: Schema\nnamespace: [\n",
		"unknown kind":   "kind: Schema\nnamespace: urn:x\ntypes:\n  - name: A\n    attributes:\n      - {name: a, kind: decimal}\n",
		"duplicate type": "kind: Schema\nnamespace: urn:x\ntypes:\n  - name: A\n  - name: A\n",
		"unknown child":  "kind: Schema\nnamespace: urn:x\ntypes:\n  - name: A\n    children: [B]\n",
		"duplicate attr": "kind: Schema\nnamespace: urn:x\ntypes:\n  - name: A\n    attributes:\n      - {name: a, kind: int}\n      - {name: a, kind: int}\n",
		"bad later doc":  "kind: Schema\nnamespace: urn:x\n---\nkind: [\n",
	}
	for name, content := range cases {
		_, err := reg.Resolve(writeSchema(t, content))
		assert.ErrorIs(t, err, ErrSchemaLoad, name)
	}
}

func TestResolveWarnsOnExtraDefinitions(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	catalog := NewCatalog()
	reg := NewRegistry(catalog).WithLogger(zerolog.New(&buf))

	ns, err := reg.Resolve(filepath.Join("testdata", "multi.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "urn:multi", ns)
	assert.Equal(t, []string{"urn:multi"}, catalog.Namespaces())
	assert.Contains(t, buf.String(), `"ignored_definitions":1`)
}

func TestResolveNamespaceConflict(t *testing.T) {
	testlog.Start(t)
	catalog := NewCatalog()
	reg := NewRegistry(catalog)

	_, err := reg.Resolve(copyFixture(t, "composed.yaml"))
	require.NoError(t, err)

	// Same definition at another path shares the namespace.
	ns, err := reg.Resolve(copyFixture(t, "composed.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "urn:composed", ns)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, 2, reg.Len())

	_, err = reg.Resolve(writeSchema(t, "kind: Schema\nnamespace: urn:composed\ntypes:\n  - name: Other\n"))
	assert.ErrorIs(t, err, ErrNamespaceConflict)
	assert.ErrorIs(t, err, ErrSchemaLoad)
}

func TestDefaultRegistryIsShared(t *testing.T) {
	testlog.Start(t)
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
	assert.Same(t, DefaultCatalog(), DefaultRegistry().Catalog())
}
