package strategy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is a named, shared block dump shipped in YAML.
type Template struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Symbol      string           `yaml:"symbol"`
	Blocks      []PersistedBlock `yaml:"blocks"`
}

// TemplateFile represents the top-level YAML structure.
type TemplateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates reads strategy templates from a YAML file. Entries without a
// name are rejected; block contents are normalized later by ToBlocks.
func LoadTemplates(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplates(data)
}

// ParseTemplates decodes a templates document.
func ParseTemplates(data []byte) ([]Template, error) {
	var file TemplateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	seen := make(map[string]bool, len(file.Templates))
	for i, tpl := range file.Templates {
		name := strings.TrimSpace(tpl.Name)
		if name == "" {
			return nil, fmt.Errorf("template %d has no name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate template %q", name)
		}
		seen[name] = true
		file.Templates[i].Name = name
		file.Templates[i].Symbol = strings.ToUpper(strings.TrimSpace(tpl.Symbol))
	}
	return file.Templates, nil
}
