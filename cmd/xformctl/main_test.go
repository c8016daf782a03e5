package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/xformctl/internal/config"
	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func copyFixtures(t *testing.T) string {
	t.Helper()
	dst := t.TempDir()
	err := filepath.WalkDir("testdata", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("testdata", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
	return dst
}

const countedOutput = "roots:\n  - type: urn:simple#Simple\n    attrs:\n      count: 2\n"

func TestRunPrintsResults(t *testing.T) {
	testlog.Start(t)
	out, err := execute(t, "run", "-f", filepath.Join("testdata", "launch.toml"), "--print")
	require.NoError(t, err)
	assert.Equal(t, "# OUT\n"+countedOutput, out)
	_, statErr := os.Stat(filepath.Join("testdata", "out"))
	assert.True(t, os.IsNotExist(statErr), "save = false must not write")
}

func TestRunSavesOutputs(t *testing.T) {
	testlog.Start(t)
	dir := copyFixtures(t)
	launchFile := filepath.Join(dir, "launch.toml")
	data, err := os.ReadFile(launchFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(launchFile, bytes.Replace(data, []byte("save = false"), []byte("save = true"), 1), 0o644))
	metrics := filepath.Join(dir, "metrics.prom")

	_, err = execute(t, "run", "-f", launchFile, "--metrics-file", metrics)
	require.NoError(t, err)
	saved, err := os.ReadFile(filepath.Join(dir, "out", "simple.yaml"))
	require.NoError(t, err)
	assert.Equal(t, countedOutput, string(saved))

	text, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(text), "xformctl_launch_runs_total")

	require.NoError(t, os.Remove(filepath.Join(dir, "out", "simple.yaml")))
	_, err = execute(t, "run", "-f", launchFile, "--no-save")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out", "simple.yaml"))
	assert.True(t, os.IsNotExist(err))
}

const refineLaunch = `module = "modules/Refine.yaml"

[[schema]]
name = "Composed"
path = "schemas/Composed.yaml"

[[graph]]
role = "input"
name = "IN"
path = "graphs/parts.yaml"

[[graph]]
role = "inout"
name = "IO"
path = "graphs/io.yaml"
`

func refineFixtures(t *testing.T) (launchFile, ioFile string) {
	t.Helper()
	dir := copyFixtures(t)
	parts, err := os.ReadFile(filepath.Join(dir, "graphs", "parts.yaml"))
	require.NoError(t, err)
	ioFile = filepath.Join(dir, "graphs", "io.yaml")
	require.NoError(t, os.WriteFile(ioFile, parts, 0o644))
	launchFile = filepath.Join(dir, "refine.toml")
	require.NoError(t, os.WriteFile(launchFile, []byte(refineLaunch), 0o644))
	return launchFile, ioFile
}

func TestRunLeavesUnchangedInOutGraphInPlace(t *testing.T) {
	testlog.Start(t)
	launchFile, ioFile := refineFixtures(t)

	_, err := execute(t, "run", "-f", launchFile)
	require.NoError(t, err)
	saved, err := os.ReadFile(ioFile)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "visited: true")
	before, err := os.Stat(ioFile)
	require.NoError(t, err)

	_, err = execute(t, "run", "-f", launchFile)
	require.NoError(t, err)
	after, err := os.Stat(ioFile)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after), "an idempotent run must not replace the file")
	again, err := os.ReadFile(ioFile)
	require.NoError(t, err)
	assert.Equal(t, string(saved), string(again))
}

func TestWatchIgnoresGraphsTheRunWrites(t *testing.T) {
	testlog.Start(t)
	launchFile, ioFile := refineFixtures(t)
	cfg, err := config.Load(launchFile)
	require.NoError(t, err)

	targets, dirs := watchTargets(cfg, launchFile)
	assert.True(t, targets[launchFile])
	assert.True(t, targets[cfg.Module])
	assert.True(t, targets[cfg.Graphs[0].Path])
	assert.False(t, targets[ioFile], "inout graphs are rewritten by each run")
	assert.True(t, dirs[filepath.Dir(ioFile)])
}

func TestRunReportsConfigurationErrors(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "launch.toml")
	require.NoError(t, os.WriteFile(path, []byte("engine = \"rules\"\n"), 0o644))
	_, err := execute(t, "run", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_module")

	require.NoError(t, os.WriteFile(path, []byte("engine = \"missing\"\n"), 0o644))
	_, err = execute(t, "validate", "-f", path)
	assert.ErrorContains(t, err, "unknown engine")
}

func TestFmtCanonicalizes(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "graph.yaml")
	src := "roots:\n- type: t#A\n  id: top\n  attrs: {b: 1, a: x}\n  refs: [top]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	canonical := "roots:\n  - type: t#A\n    attrs:\n      a: x\n      b: 1\n    refs: [/0]\n"

	out, err := execute(t, "fmt", path)
	require.NoError(t, err)
	assert.Equal(t, canonical, out)

	_, err = execute(t, "fmt", "-w", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonical, string(data))
}

func TestSchemaPrintsNamespaces(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join("testdata", "schemas", "Simple.yaml")
	out, err := execute(t, "schema", "--types", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\turn:simple\n  abstract urn:simple#Named\n  type urn:simple#Simple\n", out)
}

func TestInitThenValidate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "launch.toml")
	out, err := execute(t, "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = execute(t, "init", "-o", path)
	assert.Error(t, err)

	out, err = execute(t, "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "validated")
}
