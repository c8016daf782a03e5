package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/xformctl/internal/engine"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/observability"
	"github.com/danmuck/xformctl/internal/resource"
	"github.com/danmuck/xformctl/internal/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result maps OUTPUT and IN_OUT graph names to their handles.
type Result map[string]*resource.Graph

// Names returns result keys in sorted order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Launcher runs configurations against engine environments.
type Launcher struct {
	factory  engine.Factory
	registry *schema.Registry
	logger   zerolog.Logger
	tempDir  string
}

// NewLauncher creates a launcher. A nil registry selects the process-wide
// default registry.
func NewLauncher(factory engine.Factory, registry *schema.Registry, logger zerolog.Logger) *Launcher {
	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	return &Launcher{
		factory:  factory,
		registry: registry,
		logger:   observability.Component(logger, "launch"),
	}
}

// WithTempDir sets the parent of per-run temporary directories. The
// default is os.TempDir.
func (l *Launcher) WithTempDir(dir string) *Launcher {
	l.tempDir = dir
	return l
}

// Run wires cfg into a fresh engine environment, executes the module and
// returns the OUTPUT and IN_OUT handles.
//
// Execute is a single blocking call with no cancellation or timeout; a
// long transformation holds the caller for its full duration. Callers that
// need bounded latency should run it in their own goroutine or process.
func (l *Launcher) Run(cfg *Config) (result Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	defer func() {
		observability.RecordRun(outcomeOf(err), time.Since(start))
	}()

	if cfg == nil {
		return nil, &ConfigurationError{Violations: NewBuilder().Validate()}
	}
	if l.factory == nil {
		return nil, &ExecutionError{Module: cfg.module, Err: errors.New("no engine factory")}
	}
	logger := l.logger.With().Str("run_id", runID).Str("module", cfg.module).Logger()

	ws := &workspace{parent: l.tempDir, runID: runID}
	defer func() {
		if cerr := ws.cleanup(); cerr != nil {
			logger.Warn().Err(cerr).Msg("workspace cleanup failed")
		}
	}()

	catalog := l.registry.Catalog()
	env, err := l.factory.NewEnv(catalog)
	if err != nil {
		return nil, &ExecutionError{Module: cfg.module, Err: fmt.Errorf("create environment: %w", err)}
	}

	if err := l.registerSchemas(env, cfg); err != nil {
		return nil, err
	}
	handles, err := l.registerGraphs(env, ws, cfg, catalog)
	if err != nil {
		return nil, err
	}
	if err := loadModule(env, cfg.module); err != nil {
		return nil, err
	}
	loaded := time.Now()
	logger.Debug().
		Dur("load", loaded.Sub(start)).
		Int("schemas", len(cfg.schemas)).
		Strs("graphs", cfg.Names()).
		Msg("configuration loaded")

	if err := env.Execute(); err != nil {
		logger.Error().Err(err).Dur("execute", time.Since(loaded)).Msg("transformation failed")
		return nil, &ExecutionError{Module: cfg.module, Err: err}
	}

	result = make(Result, len(handles))
	for _, g := range handles {
		if g.Role.Writable() {
			result[g.Name] = g
		}
	}
	logger.Info().
		Dur("load", loaded.Sub(start)).
		Dur("execute", time.Since(loaded)).
		Strs("results", result.Names()).
		Msg("transformation complete")
	return result, nil
}

// registerSchemas resolves archive members by their archive!member location
// so repeated runs hit the registry memo like on-disk schemas do.
func (l *Launcher) registerSchemas(env engine.Env, cfg *Config) error {
	for _, s := range cfg.schemas {
		var ns string
		var err error
		if s.Archived() {
			ns, err = l.registry.ResolveData(s.Location(), s.data)
		} else {
			ns, err = l.registry.Resolve(s.Path)
		}
		if err != nil {
			return err
		}
		if err := env.RegisterSchema(s.Name, ns); err != nil {
			return &schema.SchemaLoadError{Path: s.Location(), Msg: "register with engine", Err: err}
		}
	}
	return nil
}

func (l *Launcher) registerGraphs(env engine.Env, ws *workspace, cfg *Config, catalog *schema.Catalog) ([]*resource.Graph, error) {
	var handles []*resource.Graph
	for _, role := range model.Roles {
		for _, b := range cfg.graphs[role] {
			g, err := openGraph(ws, b, catalog)
			if err == nil {
				err = registerGraph(env, g)
			}
			if err != nil {
				return nil, &GraphLoadError{Name: b.Name, Role: b.Role, Path: b.Path, Err: err}
			}
			handles = append(handles, g)
		}
	}
	return handles, nil
}

func openGraph(ws *workspace, b GraphBinding, catalog *schema.Catalog) (*resource.Graph, error) {
	if b.Role == model.RoleOutput {
		return resource.Create(b.Name, b.Role, b.Path)
	}
	if !b.inMemory {
		return resource.Open(b.Name, b.Role, b.Path, catalog)
	}
	path, err := ws.write(b.Name, ".yaml", b.data)
	if err != nil {
		return nil, err
	}
	g, err := resource.Open(b.Name, b.Role, path, catalog)
	if err != nil {
		return nil, err
	}
	// The temp file does not outlive the run.
	g.Location = ""
	return g, nil
}

func registerGraph(env engine.Env, g *resource.Graph) error {
	switch g.Role {
	case model.RoleInput:
		return env.RegisterInput(g.Name, g)
	case model.RoleOutput:
		return env.RegisterOutput(g.Name, g)
	case model.RoleInOut:
		return env.RegisterInOut(g.Name, g)
	default:
		return fmt.Errorf("invalid role %s", g.Role)
	}
}

// ModuleID returns the module identifier and base directory of a module
// path: the base name without extension and the containing directory.
func ModuleID(path string) (id, dir string) {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), filepath.Dir(path)
}

func loadModule(env engine.Env, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &ModuleLoadError{Module: path, Err: err}
	}
	id, dir := ModuleID(abs)
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return &ModuleLoadError{Module: id, Dir: dir, Err: err}
	case info.IsDir():
		return &ModuleLoadError{Module: id, Dir: dir, Err: fmt.Errorf("%s is a directory", abs)}
	}
	if err := env.LoadModule(dir, id); err != nil {
		return &ModuleLoadError{Module: id, Dir: dir, Err: err}
	}
	return nil
}

func outcomeOf(err error) string {
	var (
		missing *schema.SchemaMissingNamespaceError
		load    *schema.SchemaLoadError
	)
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrConfiguration):
		return observability.OutcomeConfiguration
	case errors.Is(err, ErrGraphLoad):
		return observability.OutcomeGraph
	case errors.Is(err, ErrModuleLoad):
		return observability.OutcomeModule
	case errors.Is(err, ErrExecution):
		return observability.OutcomeExecution
	case errors.As(err, &missing), errors.As(err, &load):
		return observability.OutcomeSchema
	default:
		return observability.OutcomeExecution
	}
}
