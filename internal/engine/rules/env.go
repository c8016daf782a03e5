package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/xformctl/internal/engine"
	"github.com/danmuck/xformctl/internal/model"
	"github.com/danmuck/xformctl/internal/resource"
	"github.com/danmuck/xformctl/internal/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Name is the registry name of this engine.
const Name = "rules"

func init() {
	engine.Register(Name, NewFactory())
}

// Factory creates rules environments.
type Factory struct {
	logger *zerolog.Logger
}

// NewFactory returns a factory that logs through the process logger unless
// WithLogger is set.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) WithLogger(logger zerolog.Logger) *Factory {
	f.logger = &logger
	return f
}

func (f *Factory) NewEnv(catalog *schema.Catalog) (engine.Env, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrBinding)
	}
	logger := log.Logger
	if f.logger != nil {
		logger = *f.logger
	}
	return &Env{
		catalog: catalog,
		schemas: make(map[string]string),
		graphs:  make(map[string]*resource.Graph),
		logger:  logger.With().Str("component", "engine.rules").Logger(),
	}, nil
}

type modelBinding struct {
	role   model.Role
	schema string
	module string
}

type assignment struct {
	attr string
	expr expr
}

type rule struct {
	module string
	name   string
	match  string
	in     string
	// target is empty for update rules.
	target string
	typeID string
	assign []assignment
}

// Env is a single-use rules workspace.
type Env struct {
	catalog  *schema.Catalog
	schemas  map[string]string
	graphs   map[string]*resource.Graph
	order    []string
	header   map[string]modelBinding
	program  []rule
	loaded   bool
	executed bool
	logger   zerolog.Logger
}

func (e *Env) RegisterSchema(name, namespace string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty schema name", ErrBinding)
	}
	if _, ok := e.catalog.Lookup(namespace); !ok {
		return fmt.Errorf("%w: schema %s: namespace %q is not in the catalog", ErrBinding, name, namespace)
	}
	if prev, ok := e.schemas[name]; ok && prev != namespace {
		return fmt.Errorf("%w: schema %s already bound to %q", ErrBinding, name, prev)
	}
	e.schemas[name] = namespace
	return nil
}

func (e *Env) RegisterInput(name string, g *resource.Graph) error {
	return e.register(name, model.RoleInput, g)
}

func (e *Env) RegisterOutput(name string, g *resource.Graph) error {
	return e.register(name, model.RoleOutput, g)
}

func (e *Env) RegisterInOut(name string, g *resource.Graph) error {
	return e.register(name, model.RoleInOut, g)
}

func (e *Env) register(name string, role model.Role, g *resource.Graph) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty graph name", ErrBinding)
	}
	if g == nil {
		return fmt.Errorf("%w: graph %s is nil", ErrBinding, name)
	}
	if g.Role != role {
		return fmt.Errorf("%w: graph %s has role %s, registered as %s", ErrBinding, name, g.Role, role)
	}
	if _, dup := e.graphs[name]; dup {
		return fmt.Errorf("%w: graph %s registered twice", ErrBinding, name)
	}
	e.graphs[name] = g
	e.order = append(e.order, name)
	return nil
}

// LoadModule reads module and its imports from dir and compiles every rule
// against the registered schemas and graphs.
func (e *Env) LoadModule(dir, module string) error {
	files, err := loadModules(dir, module)
	if err != nil {
		return err
	}
	header := make(map[string]modelBinding)
	for _, m := range files {
		for _, section := range []struct {
			role     model.Role
			bindings map[string]string
		}{
			{model.RoleInput, m.From},
			{model.RoleOutput, m.Create},
			{model.RoleInOut, m.Refine},
		} {
			for _, name := range sortedKeys(section.bindings) {
				if err := e.bindModel(header, m.id, name, section.role, section.bindings[name]); err != nil {
					return err
				}
			}
		}
	}

	var program []rule
	for _, m := range files {
		for i, rf := range m.Rules {
			r, err := e.compileRule(header, m.id, i, rf)
			if err != nil {
				return err
			}
			program = append(program, r)
		}
	}
	e.header = header
	e.program = program
	e.loaded = true
	e.logger.Debug().
		Str("module", module).
		Int("modules", len(files)).
		Int("rules", len(program)).
		Msg("module loaded")
	return nil
}

func (e *Env) bindModel(header map[string]modelBinding, module, name string, role model.Role, schemaName string) error {
	if _, ok := e.schemas[schemaName]; !ok {
		return fmt.Errorf("%w: %s: model %s uses unknown schema %q", ErrModule, module, name, schemaName)
	}
	g, ok := e.graphs[name]
	if !ok {
		return fmt.Errorf("%w: %s: model %s is not bound", ErrModule, module, name)
	}
	if g.Role != role {
		return fmt.Errorf("%w: %s: model %s is bound as %s, module expects %s", ErrModule, module, name, g.Role, role)
	}
	if prev, ok := header[name]; ok && (prev.role != role || prev.schema != schemaName) {
		return fmt.Errorf("%w: %s: model %s conflicts with module %s", ErrModule, module, name, prev.module)
	}
	header[name] = modelBinding{role: role, schema: schemaName, module: module}
	return nil
}

func (e *Env) resolveType(schemaName, typeName string) (string, error) {
	ns, ok := e.schemas[schemaName]
	if !ok {
		return "", fmt.Errorf("unknown schema %q", schemaName)
	}
	typeID := model.TypeID(ns, typeName)
	if _, ok := e.catalog.LookupType(typeID); !ok {
		return "", fmt.Errorf("unknown type %s!%s", schemaName, typeName)
	}
	return typeID, nil
}

func (e *Env) resolveRef(ref string) (string, error) {
	schemaName, typeName, ok := strings.Cut(strings.TrimSpace(ref), "!")
	if !ok || schemaName == "" || typeName == "" {
		return "", fmt.Errorf("type reference %q is not Schema!Type", ref)
	}
	return e.resolveType(schemaName, typeName)
}

func (e *Env) compileRule(header map[string]modelBinding, module string, index int, rf ruleFile) (rule, error) {
	r := rule{module: module, name: rf.Name}
	if r.name == "" {
		r.name = fmt.Sprintf("rule[%d]", index)
	}
	fail := func(format string, args ...any) (rule, error) {
		return rule{}, fmt.Errorf("%w: %s: %s: %s", ErrModule, module, r.name, fmt.Sprintf(format, args...))
	}

	var err error
	if r.match, err = e.resolveRef(rf.Match); err != nil {
		return fail("match: %v", err)
	}
	if rf.In != "" {
		b, ok := header[rf.In]
		if !ok || b.role == model.RoleOutput {
			return fail("in: %s is not a from or refine model", rf.In)
		}
		r.in = rf.In
	}

	switch {
	case rf.To != nil && rf.Update != nil:
		return fail("rule has both to and update")
	case rf.To != nil:
		if r.target, err = pickTarget(header, rf.To.Model); err != nil {
			return fail("to: %v", err)
		}
		if r.typeID, err = e.resolveRef(rf.To.Type); err != nil {
			return fail("to.type: %v", err)
		}
		if t, _ := e.catalog.LookupType(r.typeID); t.Abstract {
			return fail("to.type %s is abstract", rf.To.Type)
		}
		if r.assign, err = e.compileAssignments(rf.To.Attributes); err != nil {
			return rule{}, fmt.Errorf("%w: %s: %s: %w", ErrModule, module, r.name, err)
		}
	case rf.Update != nil:
		if r.assign, err = e.compileAssignments(rf.Update); err != nil {
			return rule{}, fmt.Errorf("%w: %s: %s: %w", ErrModule, module, r.name, err)
		}
	default:
		return fail("rule needs to or update")
	}
	return r, nil
}

func pickTarget(header map[string]modelBinding, name string) (string, error) {
	if name != "" {
		b, ok := header[name]
		if !ok || !b.role.Writable() {
			return "", fmt.Errorf("%s is not a create or refine model", name)
		}
		return name, nil
	}
	var created []string
	for n, b := range header {
		if b.role == model.RoleOutput {
			created = append(created, n)
		}
	}
	if len(created) != 1 {
		return "", fmt.Errorf("model is required when the module does not create exactly one model")
	}
	return created[0], nil
}

func (e *Env) compileAssignments(in map[string]yaml.Node) ([]assignment, error) {
	out := make([]assignment, 0, len(in))
	for _, attr := range sortedKeys(in) {
		node := in[attr]
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("attribute %s: expression must be a scalar", attr)
		}
		var x expr
		if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			x = literalExpr{value: node.Value}
		} else {
			var err error
			if x, err = compile(node.Value, e.resolveType); err != nil {
				return nil, fmt.Errorf("attribute %s: %w", attr, err)
			}
		}
		out = append(out, assignment{attr: attr, expr: x})
	}
	return out, nil
}

// Execute applies every loaded rule in order and checks the written graphs
// against the catalog. It runs to completion in the calling goroutine.
func (e *Env) Execute() error {
	if !e.loaded {
		return ErrNoModule
	}
	if e.executed {
		return ErrExecuted
	}
	e.executed = true

	for _, r := range e.program {
		if err := e.apply(r); err != nil {
			return err
		}
	}
	for _, name := range e.order {
		g := e.graphs[name]
		if g.ReadOnly() {
			continue
		}
		if err := e.catalog.Check(g.Roots); err != nil {
			return fmt.Errorf("rules: graph %s: %w", name, err)
		}
	}
	return nil
}

func (e *Env) sources(r rule) ([]*resource.Graph, error) {
	if r.in != "" {
		g := e.graphs[r.in]
		if r.target == "" && g.ReadOnly() {
			return nil, fmt.Errorf("rules: %s: %s updates %s: %w", r.module, r.name, r.in, resource.ErrReadOnly)
		}
		return []*resource.Graph{g}, nil
	}
	var out []*resource.Graph
	for _, name := range e.order {
		b, ok := e.header[name]
		if !ok || b.role == model.RoleOutput {
			continue
		}
		if r.target == "" && b.role != model.RoleInOut {
			continue
		}
		out = append(out, e.graphs[name])
	}
	return out, nil
}

func (e *Env) apply(r rule) error {
	graphs, err := e.sources(r)
	if err != nil {
		return err
	}
	var matches []*model.Node
	for _, g := range graphs {
		model.Walk(g.Roots, func(n *model.Node) bool {
			if n.Type == r.match {
				matches = append(matches, n)
			}
			return true
		})
	}

	for _, n := range matches {
		values := make([]any, len(r.assign))
		for i, a := range r.assign {
			v, err := a.expr.eval(n)
			if err != nil {
				return fmt.Errorf("rules: %s: %s: attribute %s: %w", r.module, r.name, a.attr, err)
			}
			values[i] = v
		}
		dst := n
		if r.target != "" {
			dst = model.NewNode(r.typeID)
		}
		for i, a := range r.assign {
			if err := dst.Set(a.attr, values[i]); err != nil {
				return fmt.Errorf("rules: %s: %s: %w", r.module, r.name, err)
			}
		}
		if r.target != "" {
			if err := e.graphs[r.target].Append(dst); err != nil {
				return fmt.Errorf("rules: %s: %s: %w", r.module, r.name, err)
			}
		}
	}
	e.logger.Debug().
		Str("module", r.module).
		Str("rule", r.name).
		Int("matches", len(matches)).
		Msg("rule applied")
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
