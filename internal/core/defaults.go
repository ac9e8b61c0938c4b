package core

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Categories []struct {
		Name  string       `yaml:"name"`
		Kind  CategoryKind `yaml:"kind"`
		Icon  string       `yaml:"icon"`
		Color string       `yaml:"color"`
	} `yaml:"categories"`
}

// DefaultCategories returns the system categories from the embedded seed file.
func DefaultCategories() ([]Category, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse default categories: %w", err)
	}
	out := make([]Category, 0, len(f.Categories))
	for _, c := range f.Categories {
		cat := Category{Name: c.Name, Kind: c.Kind, Icon: c.Icon, Color: c.Color}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("default category %q: %w", c.Name, err)
		}
		out = append(out, cat)
	}
	return out, nil
}
