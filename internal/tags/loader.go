package tags

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the YAML representation of an already-parsed labeling
// config: a flat document with controls and objects.
type configFile struct {
	Controls []*Control `yaml:"controls"`
	Objects  []*Object  `yaml:"objects"`
}

// LoadFile reads a labeling config from a YAML file and builds the tree.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labeling config: %w", err)
	}
	return Load(data)
}

// Load builds a tree from YAML bytes.
func Load(data []byte) (*Tree, error) {
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse labeling config: %w", err)
	}
	if len(cfg.Controls) == 0 {
		return nil, fmt.Errorf("labeling config declares no controls")
	}
	if len(cfg.Objects) == 0 {
		return nil, fmt.Errorf("labeling config declares no objects")
	}
	tree, err := BuildTree(cfg.Controls, cfg.Objects)
	if err != nil {
		return nil, err
	}
	for _, c := range tree.AllControls() {
		if c.ToName != "" && tree.Object(c.ToName) == nil {
			return nil, fmt.Errorf("control %q targets unknown object %q", c.Name, c.ToName)
		}
	}
	return tree, nil
}
