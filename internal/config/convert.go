package config

import (
	"github.com/danmuck/xformctl/internal/launch"
)

// Builder converts a validated manifest into a launch builder.
func (c LaunchConfig) Builder() *launch.Builder {
	b := launch.NewBuilder().WithModule(c.Module)
	for _, s := range c.Schemas {
		if s.Archive != "" {
			b.WithSchemaFromArchive(s.Name, s.Archive, s.Member)
			continue
		}
		b.WithSchema(s.Name, s.Path)
	}
	for _, g := range c.Graphs {
		b.WithGraph(g.role, g.Name, g.Path)
	}
	return b
}
