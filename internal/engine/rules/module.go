package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const moduleExt = ".yaml"

type moduleFile struct {
	Module  string            `yaml:"module"`
	Imports []string          `yaml:"imports"`
	Create  map[string]string `yaml:"create"`
	From    map[string]string `yaml:"from"`
	Refine  map[string]string `yaml:"refine"`
	Rules   []ruleFile        `yaml:"rules"`

	id string
}

type ruleFile struct {
	Name   string               `yaml:"name"`
	Match  string               `yaml:"match"`
	In     string               `yaml:"in"`
	To     *targetFile          `yaml:"to"`
	Update map[string]yaml.Node `yaml:"update"`
}

type targetFile struct {
	Model      string               `yaml:"model"`
	Type       string               `yaml:"type"`
	Attributes map[string]yaml.Node `yaml:"attributes"`
}

// ModulePath returns the file that holds module id in dir.
func ModulePath(dir, id string) string {
	return filepath.Join(dir, id+moduleExt)
}

func readModule(dir, id string) (*moduleFile, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: invalid module id %q", ErrModule, id)
	}
	path := ModulePath(dir, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModule, id, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m moduleFile
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: empty module file", ErrModule, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrModule, path, err)
	}
	if m.Module != "" && m.Module != id {
		return nil, fmt.Errorf("%w: %s declares module %q", ErrModule, path, m.Module)
	}
	m.id = id
	return &m, nil
}

// loadModules reads id and everything it imports from dir. Imported modules
// come before their importers and each module appears once.
func loadModules(dir, id string) ([]*moduleFile, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var ordered []*moduleFile
	var visit func(id string, chain []string) error
	visit = func(id string, chain []string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: import cycle %s", ErrModule, strings.Join(append(chain[:len(chain):len(chain)], id), " -> "))
		}
		state[id] = visiting
		m, err := readModule(dir, id)
		if err != nil {
			return err
		}
		for _, imp := range m.Imports {
			if err := visit(strings.TrimSpace(imp), append(chain[:len(chain):len(chain)], id)); err != nil {
				return err
			}
		}
		state[id] = done
		ordered = append(ordered, m)
		return nil
	}
	if err := visit(id, nil); err != nil {
		return nil, err
	}
	return ordered, nil
}
