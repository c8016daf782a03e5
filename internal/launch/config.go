package launch

import "github.com/danmuck/xformctl/internal/model"

// Config is a validated, immutable transformation configuration.
type Config struct {
	module  string
	schemas []SchemaBinding
	graphs  map[model.Role][]GraphBinding
}

func (c *Config) Module() string { return c.module }

// Schemas returns schema bindings in binding order.
func (c *Config) Schemas() []SchemaBinding {
	return append([]SchemaBinding(nil), c.schemas...)
}

// Graphs returns the bindings of one role in binding order.
func (c *Config) Graphs(role model.Role) []GraphBinding {
	return append([]GraphBinding(nil), c.graphs[role]...)
}

// Names returns every bound graph name in role order.
func (c *Config) Names() []string {
	var names []string
	for _, role := range model.Roles {
		for _, g := range c.graphs[role] {
			names = append(names, g.Name)
		}
	}
	return names
}

// Run executes the configuration with l.
func (c *Config) Run(l *Launcher) (Result, error) {
	return l.Run(c)
}
