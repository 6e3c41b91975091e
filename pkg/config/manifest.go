// Package config also loads the optional root manifest: a YAML file
// declaring named roots to materialize at Store startup, in the same
// structured-import-file style the storage-engine ancestor used for
// loading JSON export bundles.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RootDecl declares one named root block to create on startup if it
// doesn't already exist.
type RootDecl struct {
	Name      string `yaml:"name"`
	BlockType string `yaml:"block_type"`
}

// RootManifest is the top-level YAML document shape:
//
//	roots:
//	  - name: document
//	    block_type: xml-fragment
//	  - name: comments
//	    block_type: array
type RootManifest struct {
	Roots []RootDecl `yaml:"roots"`
}

// LoadRootManifest reads and parses a root manifest file.
func LoadRootManifest(path string) (*RootManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m RootManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for i, r := range m.Roots {
		if r.Name == "" {
			return nil, fmt.Errorf("manifest %s: root at index %d has no name", path, i)
		}
		if r.BlockType == "" {
			return nil, fmt.Errorf("manifest %s: root %q has no block_type", path, r.Name)
		}
	}
	return &m, nil
}
