package launch

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/danmuck/xformctl/internal/codec"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/observability"
)

// SchemaBinding names one schema file, either on disk or inside an archive.
type SchemaBinding struct {
	Name    string
	Path    string
	Archive string
	Member  string

	data []byte
	err  error
}

// Archived reports whether the schema is read from an archive member.
func (b SchemaBinding) Archived() bool { return b.Archive != "" }

// Location is the path used in diagnostics.
func (b SchemaBinding) Location() string {
	if b.Archived() {
		return b.Archive + "!" + b.Member
	}
	return b.Path
}

// GraphBinding binds a graph name to a role and a location. In-memory
// bindings carry the encoded graph text instead of a path.
type GraphBinding struct {
	Name string
	Role model.Role
	Path string

	data     []byte
	inMemory bool
	err      error
}

// InMemory reports whether the graph was bound from roots.
func (b GraphBinding) InMemory() bool { return b.inMemory }

// Builder accumulates bindings for a Config. It is not safe for concurrent
// use and keeps its state after Build.
type Builder struct {
	module  string
	schemas []SchemaBinding
	graphs  []GraphBinding
}

func NewBuilder() *Builder {
	return &Builder{}
}

// WithSchema binds a schema file.
func (b *Builder) WithSchema(name, path string) *Builder {
	b.schemas = append(b.schemas, SchemaBinding{Name: name, Path: path})
	return b
}

// WithSchemaFromArchive binds a schema stored as member of a zip or jar
// archive. The member is read now; runs resolve it from memory under its
// archive!member location.
func (b *Builder) WithSchemaFromArchive(name, archive, member string) *Builder {
	if abs, err := filepath.Abs(archive); err == nil {
		archive = abs
	}
	member = strings.TrimPrefix(member, "/")
	binding := SchemaBinding{Name: name, Archive: archive, Member: member}
	binding.data, binding.err = readArchiveMember(archive, member)
	b.schemas = append(b.schemas, binding)
	return b
}

// WithGraph binds a graph file to role.
func (b *Builder) WithGraph(role model.Role, name, path string) *Builder {
	b.graphs = append(b.graphs, GraphBinding{Name: name, Role: role, Path: path})
	return b
}

// WithGraphRoots binds in-memory roots to role. The roots are encoded now,
// so later mutation of the nodes does not affect the binding.
func (b *Builder) WithGraphRoots(role model.Role, name string, roots []*model.Node) *Builder {
	binding := GraphBinding{Name: name, Role: role, inMemory: true}
	binding.data, binding.err = codec.Encode(roots)
	observability.RecordCodec("encode", binding.err)
	b.graphs = append(b.graphs, binding)
	return b
}

// WithModule sets the transformation module path.
func (b *Builder) WithModule(path string) *Builder {
	b.module = path
	return b
}

// Validate returns every violation. The four structural checks come first
// and in fixed order: module, schema, input, output.
func (b *Builder) Validate() []Violation {
	var out []Violation
	if strings.TrimSpace(b.module) == "" {
		out = append(out, Violation{Code: ViolationNoModule, Msg: "no transformation module set"})
	}
	if len(b.schemas) == 0 {
		out = append(out, Violation{Code: ViolationNoSchema, Msg: "at least one schema is required"})
	}
	if !b.hasRole(model.RoleInput) {
		out = append(out, Violation{Code: ViolationNoInput, Msg: "at least one input graph is required"})
	}
	if !b.hasRole(model.RoleOutput) && !b.hasRole(model.RoleInOut) {
		out = append(out, Violation{Code: ViolationNoOutput, Msg: "at least one output or inout graph is required"})
	}

	seenSchema := make(map[string]bool, len(b.schemas))
	for _, s := range b.schemas {
		switch {
		case strings.TrimSpace(s.Name) == "":
			out = append(out, Violation{Code: ViolationEmptyName, Msg: "schema " + s.Location() + " has no name"})
		case seenSchema[s.Name]:
			out = append(out, Violation{Code: ViolationDuplicateSchema, Name: s.Name, Msg: "schema name bound more than once"})
		}
		seenSchema[s.Name] = true
		switch {
		case s.err != nil:
			out = append(out, Violation{Code: ViolationBinding, Name: s.Name, Msg: s.err.Error()})
		case !s.Archived() && strings.TrimSpace(s.Path) == "":
			out = append(out, Violation{Code: ViolationBinding, Name: s.Name, Msg: "schema has no path"})
		}
	}

	seenGraph := make(map[string]model.Role, len(b.graphs))
	for _, g := range b.graphs {
		switch {
		case strings.TrimSpace(g.Name) == "":
			out = append(out, Violation{Code: ViolationEmptyName, Msg: fmt.Sprintf("%s graph has no name", g.Role)})
		case seenGraph[g.Name] != 0:
			out = append(out, Violation{
				Code: ViolationDuplicateGraph,
				Name: g.Name,
				Msg:  fmt.Sprintf("already bound as %s", seenGraph[g.Name]),
			})
		default:
			seenGraph[g.Name] = g.Role
		}
		switch {
		case !g.Role.Valid():
			out = append(out, Violation{Code: ViolationBinding, Name: g.Name, Msg: "invalid role " + g.Role.String()})
		case g.err != nil:
			out = append(out, Violation{Code: ViolationBinding, Name: g.Name, Msg: g.err.Error()})
		case !g.inMemory && strings.TrimSpace(g.Path) == "":
			out = append(out, Violation{Code: ViolationBinding, Name: g.Name, Msg: "graph has no path"})
		}
	}
	return out
}

func (b *Builder) hasRole(role model.Role) bool {
	for _, g := range b.graphs {
		if g.Role == role {
			return true
		}
	}
	return false
}

// Build validates the accumulated bindings and freezes them into a Config.
func (b *Builder) Build() (*Config, error) {
	if violations := b.Validate(); len(violations) > 0 {
		return nil, &ConfigurationError{Violations: violations}
	}
	cfg := &Config{
		module:  b.module,
		schemas: append([]SchemaBinding(nil), b.schemas...),
		graphs:  make(map[model.Role][]GraphBinding, len(model.Roles)),
	}
	for _, g := range b.graphs {
		cfg.graphs[g.Role] = append(cfg.graphs[g.Role], g)
	}
	return cfg, nil
}

func readArchiveMember(archive, member string) ([]byte, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("launch: open archive %s: %w", archive, err)
	}
	defer r.Close()
	want := strings.TrimPrefix(member, "/")
	for _, f := range r.File {
		if f.Name != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("launch: open %s!%s: %w", archive, member, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("launch: read %s!%s: %w", archive, member, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("launch: archive %s has no member %s", archive, member)
}
