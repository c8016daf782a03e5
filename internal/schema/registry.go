package schema

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/danmuck/xformctl/internal/observability"
	"github.com/rs/zerolog"
)

// Registry resolves schema files to namespaces, memoized by absolute path,
// and registers each resolved schema into its catalog.
type Registry struct {
	mu      sync.Mutex
	catalog *Catalog
	byPath  map[string]string
	logger  zerolog.Logger
}

// NewRegistry creates a registry that registers into catalog.
func NewRegistry(catalog *Catalog) *Registry {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Registry{
		catalog: catalog,
		byPath:  make(map[string]string),
		logger:  zerolog.Nop(),
	}
}

// DefaultRegistry is the process-wide registry over DefaultCatalog.
func DefaultRegistry() *Registry {
	initDefaults()
	return defaultRegistry
}

// WithLogger sets the logger used for resolution diagnostics.
func (r *Registry) WithLogger(logger zerolog.Logger) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger.With().Str("component", "schema.registry").Logger()
	return r
}

// Catalog returns the catalog this registry registers into.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// Resolve returns the namespace declared by the schema file at path.
// Loading and registration happen once per absolute path; later calls are
// served from the cache without touching the file or the catalog. The
// whole resolve-and-register step holds the registry lock.
func (r *Registry) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &SchemaLoadError{Path: path, Msg: "resolve path", Err: err}
	}
	return r.resolve(abs, func() ([]byte, error) {
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, &SchemaLoadError{Path: abs, Msg: "read failed", Err: err}
		}
		return data, nil
	})
}

// ResolveData is Resolve for schema text that does not live in its own
// file, such as an archive member. key names the source and is the memo
// key, so data is parsed only on the first call for a key.
func (r *Registry) ResolveData(key string, data []byte) (string, error) {
	if key == "" {
		return "", &SchemaLoadError{Msg: "empty source key"}
	}
	return r.resolve(key, func() ([]byte, error) { return data, nil })
}

func (r *Registry) resolve(key string, load func() ([]byte, error)) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ns, ok := r.byPath[key]; ok {
		observability.RecordSchemaResolve(true)
		r.logger.Debug().Str("path", key).Str("namespace", ns).Msg("schema cache hit")
		return ns, nil
	}
	observability.RecordSchemaResolve(false)

	data, err := load()
	if err != nil {
		return "", err
	}
	s, extra, err := Parse(key, data)
	if err != nil {
		return "", err
	}
	if extra > 0 {
		r.logger.Warn().
			Str("path", key).
			Str("namespace", s.Namespace).
			Int("ignored_definitions", extra).
			Msg("schema file holds more than one definition; only the first is registered")
	}
	if err := r.catalog.Register(s); err != nil {
		return "", &SchemaLoadError{Path: key, Msg: "register failed", Err: err}
	}
	r.byPath[key] = s.Namespace
	r.logger.Debug().
		Str("path", key).
		Str("namespace", s.Namespace).
		Int("types", len(s.Types)).
		Msg("schema registered")
	return s.Namespace, nil
}

// Len reports the number of memoized schema sources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPath)
}

// Paths returns memoized source keys in sorted order: absolute paths and
// archive!member locations.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		list = append(list, p)
	}
	sort.Strings(list)
	return list
}
