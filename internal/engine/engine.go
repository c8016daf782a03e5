package engine

import (
	"github.com/danmuck/xformctl/internal/resource"
	"github.com/danmuck/xformctl/internal/schema"
)

// Factory creates execution environments.
type Factory interface {
	NewEnv(catalog *schema.Catalog) (Env, error)
}

// Env is one transformation workspace.
type Env interface {
	// RegisterSchema makes the namespace available under a program-visible name.
	RegisterSchema(name, namespace string) error
	RegisterInput(name string, g *resource.Graph) error
	RegisterOutput(name string, g *resource.Graph) error
	RegisterInOut(name string, g *resource.Graph) error
	// LoadModule loads module id from dir, resolving imports in the same dir.
	LoadModule(dir, module string) error
	// Execute runs the loaded module to completion. It blocks for the full
	// run and cannot be cancelled.
	Execute() error
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(catalog *schema.Catalog) (Env, error)

func (f FactoryFunc) NewEnv(catalog *schema.Catalog) (Env, error) {
	return f(catalog)
}
