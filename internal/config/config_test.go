package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/xformctl/internal/launch"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLaunch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launch.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "launch.toml"))
	require.NoError(t, err)

	dir, err := filepath.Abs("testdata")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Dir)
	assert.Equal(t, DefaultEngine, cfg.Engine)
	assert.Equal(t, filepath.Join(dir, "modules", "CountParts.yaml"), cfg.Module)
	assert.Equal(t, filepath.Join(dir, "schemas", "Composed.yaml"), cfg.Schemas[0].Path)
	assert.Equal(t, "/opt/models/simple.jar", cfg.Schemas[1].Archive)
	assert.Equal(t, "/data/io.yaml", cfg.Graphs[2].Path)
	assert.True(t, cfg.Output.Print)
	assert.True(t, cfg.Output.Save)

	roles := []model.Role{cfg.Graphs[0].RoleOf(), cfg.Graphs[1].RoleOf(), cfg.Graphs[2].RoleOf()}
	assert.Equal(t, []model.Role{model.RoleInput, model.RoleOutput, model.RoleInOut}, roles)
}

func TestWatchPathsSkipWritableGraphs(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(filepath.Join("testdata", "launch.toml"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		cfg.Module,
		cfg.Schemas[0].Path,
		"/opt/models/simple.jar",
		cfg.Graphs[0].Path,
	}, cfg.WatchPaths())
}

func TestLoadRejectsInvalidManifests(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"unknown key":        "module = \"m.yaml\"\ncolour = \"red\"\n",
		"schema name":        "[[schema]]\npath = \"s.yaml\"\n",
		"schema source":      "[[schema]]\nname = \"S\"\n",
		"path and archive":   "[[schema]]\nname = \"S\"\npath = \"s.yaml\"\narchive = \"a.jar\"\nmember = \"s.yaml\"\n",
		"archive no member":  "[[schema]]\nname = \"S\"\narchive = \"a.jar\"\n",
		"graph without role": "[[graph]]\nname = \"IN\"\npath = \"in.yaml\"\n",
		"bad role":           "[[graph]]\nrole = \"sideways\"\nname = \"IN\"\npath = \"in.yaml\"\n",
	}
	for name, content := range cases {
		_, err := Load(writeLaunch(t, content))
		assert.ErrorIs(t, err, ErrInvalid, name)
	}

	_, err := Load(writeLaunch(t, "module = [\n"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuilderLeavesInvariantsToLaunch(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeLaunch(t, "engine = \"rules\"\n"))
	require.NoError(t, err)

	_, err = cfg.Builder().Build()
	var confErr *launch.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, launch.ViolationNoModule, confErr.Cause().Code)
	assert.Len(t, confErr.Violations, 4)
}

func TestBuilderFromManifest(t *testing.T) {
	testlog.Start(t)
	path := writeLaunch(t, `module = "m.yaml"
[[schema]]
name = "S"
path = "s.yaml"
[[graph]]
role = "input"
name = "IN"
path = "in.yaml"
[[graph]]
role = "out"
name = "OUT"
path = "out.yaml"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	built, err := cfg.Builder().Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"IN", "OUT"}, built.Names())
	assert.Equal(t, filepath.Join(cfg.Dir, "m.yaml"), built.Module())
	assert.Equal(t, filepath.Join(cfg.Dir, "out.yaml"), built.Graphs(model.RoleOutput)[0].Path)
}

func TestWriteTemplateLoads(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "launch.toml")
	require.NoError(t, WriteTemplate(path, "launch", false))
	assert.Error(t, WriteTemplate(path, "launch", false))
	require.NoError(t, WriteTemplate(path, "launch", true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Schemas, 2)
	assert.Len(t, cfg.Graphs, 2)

	_, err = Template("ghost")
	assert.Error(t, err)
}
