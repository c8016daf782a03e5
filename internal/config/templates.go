package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "launch", "":
		return launchTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const launchTemplate = `module = "modules/Composite2Simple.yaml"
engine = "rules"

[[schema]]
name = "Composed"
path = "schemas/Composed.yaml"

[[schema]]
name = "Simple"
path = "schemas/Simple.yaml"

[[graph]]
role = "input"
name = "IN"
path = "graphs/composed.yaml"

[[graph]]
role = "output"
name = "OUT"
path = "graphs/simple.yaml"

[output]
print = true
save = true
`
