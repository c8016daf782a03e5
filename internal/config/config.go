package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/go-playground/validator/v10"
)

// DefaultEngine is used when a launch file does not name one.
const DefaultEngine = "rules"

var ErrInvalid = errors.New("config: invalid launch file")

var validate = validator.New()

// LaunchConfig is a parsed launch manifest. Paths are absolute after Load.
type LaunchConfig struct {
	Module  string        `toml:"module"`
	Engine  string        `toml:"engine"`
	Schemas []SchemaEntry `toml:"schema" validate:"dive"`
	Graphs  []GraphEntry  `toml:"graph" validate:"dive"`
	Output  OutputConfig  `toml:"output"`

	// Dir is the directory of the manifest file.
	Dir string `toml:"-"`
}

type SchemaEntry struct {
	Name    string `toml:"name" validate:"required"`
	Path    string `toml:"path" validate:"required_without=Archive,excluded_with=Archive"`
	Archive string `toml:"archive" validate:"required_with=Member"`
	Member  string `toml:"member" validate:"required_with=Archive"`
}

type GraphEntry struct {
	Role string `toml:"role" validate:"required"`
	Name string `toml:"name" validate:"required"`
	Path string `toml:"path" validate:"required"`

	role model.Role
}

type OutputConfig struct {
	Print bool `toml:"print"`
	Save  bool `toml:"save"`
}

// Load reads and validates the launch manifest at path.
func Load(path string) (LaunchConfig, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return LaunchConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg := LaunchConfig{Engine: DefaultEngine, Output: OutputConfig{Save: true}}
	meta, err := toml.DecodeFile(abs, &cfg)
	if err != nil {
		return LaunchConfig{}, fmt.Errorf("config parse failed (%s): %w", abs, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return LaunchConfig{}, fmt.Errorf("%w (%s): unknown keys %s", ErrInvalid, abs, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("engine") || strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = DefaultEngine
	}
	cfg.Dir = filepath.Dir(abs)
	cfg.resolvePaths()
	if err := Validate(&cfg); err != nil {
		return LaunchConfig{}, fmt.Errorf("%w (%s): %v", ErrInvalid, abs, err)
	}
	return cfg, nil
}

// Validate checks entry shapes and roles. Whether the manifest holds enough
// bindings to run is left to the launch builder.
func Validate(cfg *LaunchConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return describe(fieldErrs)
		}
		return err
	}
	for i := range cfg.Graphs {
		role, err := model.ParseRole(cfg.Graphs[i].Role)
		if err != nil {
			return fmt.Errorf("graph[%d] %s: %w", i, cfg.Graphs[i].Name, err)
		}
		cfg.Graphs[i].role = role
	}
	return nil
}

func describe(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.TrimPrefix(fe.Namespace(), "LaunchConfig.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "required_without":
			msgs = append(msgs, field+" is required unless "+fe.Param()+" is set")
		case "required_with":
			msgs = append(msgs, field+" is required with "+fe.Param())
		case "excluded_with":
			msgs = append(msgs, field+" cannot be combined with "+fe.Param())
		default:
			msgs = append(msgs, field+" fails "+fe.Tag())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c *LaunchConfig) resolvePaths() {
	c.Module = c.abs(c.Module)
	for i := range c.Schemas {
		c.Schemas[i].Path = c.abs(c.Schemas[i].Path)
		c.Schemas[i].Archive = c.abs(c.Schemas[i].Archive)
	}
	for i := range c.Graphs {
		c.Graphs[i].Path = c.abs(c.Graphs[i].Path)
	}
}

func (c *LaunchConfig) abs(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// RoleOf returns the parsed role of a validated entry.
func (g GraphEntry) RoleOf() model.Role { return g.role }

// WatchPaths lists the files a run only reads: the module, schema sources
// and the input graphs. Output and inout graphs are written by every run,
// so watching them would re-trigger it.
func (c LaunchConfig) WatchPaths() []string {
	set := map[string]bool{}
	if c.Module != "" {
		set[c.Module] = true
	}
	for _, s := range c.Schemas {
		if s.Archive != "" {
			set[s.Archive] = true
		} else if s.Path != "" {
			set[s.Path] = true
		}
	}
	for _, g := range c.Graphs {
		if !g.role.Writable() && g.Path != "" {
			set[g.Path] = true
		}
	}
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
