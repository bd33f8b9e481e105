package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionFile is a YAML component definition and the file it came from.
type DefinitionFile struct {
	Definition ComponentDefinition
	Path       string
}

// ParseDefinitionYAML checks payload against the component schema, decodes
// it strictly and applies the semantic rules.
func ParseDefinitionYAML(payload []byte) (ComponentDefinition, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return ComponentDefinition{}, errors.New("plugin: definition payload is empty")
	}
	if err := ValidateSchema(payload); err != nil {
		return ComponentDefinition{}, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	var def ComponentDefinition
	if err := dec.Decode(&def); err != nil {
		return ComponentDefinition{}, fmt.Errorf("plugin: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return ComponentDefinition{}, err
	}
	return def.Normalized(), nil
}

// LoadDefinitionFile parses the YAML definition stored at path.
func LoadDefinitionFile(path string) (DefinitionFile, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	def, err := ParseDefinitionYAML(payload)
	if err != nil {
		return DefinitionFile{}, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return DefinitionFile{Definition: def, Path: filepath.Clean(path)}, nil
}

// LoadDefinitionDir parses every *.yaml and *.yml file in dir, sorted by
// path. A missing directory means no plugins.
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	paths, err := pluginFiles(dir, isYAMLFile)
	if err != nil {
		return nil, err
	}
	defs := make([]DefinitionFile, 0, len(paths))
	for _, path := range paths {
		def, err := LoadDefinitionFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// pluginFiles lists the regular files in dir accepted by match, sorted.
func pluginFiles(dir string, match func(name string) bool) ([]string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && match(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isYAMLFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func isGoSource(name string) bool {
	return filepath.Ext(name) == ".go" && !strings.HasSuffix(name, "_test.go")
}
