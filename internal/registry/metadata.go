package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PackageMetadata is the descriptor stored alongside each published version.
// The field set is a fixed contract: the YAML descriptor and the JSON
// metadata endpoint carry exactly these fields, field-for-field.
type PackageMetadata struct {
	Name                string   `yaml:"name" json:"name"`
	Description         string   `yaml:"description" json:"description"`
	Version             string   `yaml:"version" json:"version"`
	Origin              string   `yaml:"origin" json:"origin"`
	BuildDependencies   []string `yaml:"build_dependencies" json:"build_dependencies"`
	RuntimeDependencies []string `yaml:"runtime_dependencies" json:"runtime_dependencies"`
	Build               string   `yaml:"build" json:"build"`
	Install             string   `yaml:"install" json:"install"`
	Uninstall           string   `yaml:"uninstall" json:"uninstall"`
	Purge               string   `yaml:"purge" json:"purge"`
	Hash                string   `yaml:"hash" json:"hash"`
}

// requiredFields lists every descriptor key. The schema has no optional
// fields; a descriptor missing any of them is unreadable.
var requiredFields = []string{
	"name", "description", "version", "origin",
	"build_dependencies", "runtime_dependencies",
	"build", "install", "uninstall", "purge", "hash",
}

// ReadMetadata decodes the descriptor file at path. Read failures and decode
// failures are not distinguished; both mean the metadata is unreadable.
func ReadMetadata(path string) (*PackageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	for _, key := range requiredFields {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("decoding metadata: missing required field %q", key)
		}
	}

	var m PackageMetadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	// A null dependency value would reach the JSON encoder as null instead
	// of a list; an empty list must be written out as [].
	if m.BuildDependencies == nil || m.RuntimeDependencies == nil {
		return nil, fmt.Errorf("decoding metadata: dependency fields must be lists")
	}

	return &m, nil
}
