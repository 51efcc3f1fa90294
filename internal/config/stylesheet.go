package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StylesheetDecl declares one stylesheet source. YAML accepts either the
// string shorthand ("styles/main.css") or the full mapping form:
//
//	stylesheets:
//	  - styles/main.css
//	  - source: styles/dark.css
//	    id: dark
//	    conditional: "prefers-color-scheme: dark"
type StylesheetDecl struct {
	Source      string `yaml:"source"`
	ID          string `yaml:"id,omitempty"`
	Conditional string `yaml:"conditional,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler to support the string shorthand.
func (d *StylesheetDecl) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var source string
		if err := value.Decode(&source); err != nil {
			return err
		}
		d.Source = source
		return nil
	case yaml.MappingNode:
		type plain StylesheetDecl
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*d = StylesheetDecl(p)
		return nil
	default:
		return fmt.Errorf("stylesheet declaration must be a string or a mapping (line %d)", value.Line)
	}
}
