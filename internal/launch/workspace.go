package launch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// workspace owns the temporary files of one run. The directory is created
// on first use and removed by cleanup.
type workspace struct {
	parent string
	runID  string
	dir    string
}

func (w *workspace) write(name, ext string, data []byte) (string, error) {
	if w.dir == "" {
		dir, err := os.MkdirTemp(w.parent, "xformctl-"+w.runID+"-")
		if err != nil {
			return "", fmt.Errorf("launch: create workspace: %w", err)
		}
		w.dir = dir
	}
	path := filepath.Join(w.dir, safeName(name)+"-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("launch: write %s: %w", path, err)
	}
	return path, nil
}

func (w *workspace) cleanup() error {
	if w.dir == "" {
		return nil
	}
	err := os.RemoveAll(w.dir)
	w.dir = ""
	return err
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
