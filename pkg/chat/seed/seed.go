// Package seed loads persona and model definitions from a config directory
// and registers them with an orchestrator at boot. Files may be JSON or YAML;
// credentials may reference environment variables ($VAR or ${VAR}).
package seed

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/parleyhq/parley/pkg/chat"
	"github.com/parleyhq/parley/pkg/provider"
)

// File is one seed config file: any mix of model and persona definitions.
type File struct {
	Models   []*chat.ModelConfig `json:"models,omitempty" yaml:"models,omitempty"`
	Personas []*chat.Persona     `json:"personas,omitempty" yaml:"personas,omitempty"`
}

// LoadFromDir walks dir recursively, parses every .json/.yaml/.yml file, and
// registers its contents. Returns the registered model and persona ids.
// Non-mock models whose credential expands to empty are skipped with a debug
// log rather than failing the whole load.
func LoadFromDir(dir string, orch *chat.Orchestrator) ([]string, error) {
	var ids []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			return nil
		}
		f, err := parseFile(path)
		if err != nil {
			return fmt.Errorf("seed: parse %s: %w", path, err)
		}
		ids = append(ids, register(f, orch)...)
		return nil
	})

	return ids, err
}

func parseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func register(f *File, orch *chat.Orchestrator) []string {
	var ids []string
	for _, m := range f.Models {
		if m.ID == "" {
			slog.Warn("seed: skipping model without id", "name", m.Name)
			continue
		}
		m.Credential = expandEnv(m.Credential)
		if m.Credential == "" && m.Provider == provider.KindCloudChat {
			slog.Debug("seed: skipping model with missing credential", "model", m.ID)
			continue
		}
		orch.RegisterModel(m)
		ids = append(ids, m.ID)
	}
	for _, p := range f.Personas {
		if p.ID == "" {
			slog.Warn("seed: skipping persona without id", "name", p.Name)
			continue
		}
		orch.RegisterPersona(p)
		ids = append(ids, p.ID)
	}
	return ids
}

// expandEnv resolves $VAR-style credential references. A value that does not
// start with '$' is used verbatim.
func expandEnv(s string) string {
	if strings.HasPrefix(s, "$") {
		return os.ExpandEnv(s)
	}
	return s
}
