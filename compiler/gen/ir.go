package gen

import (
	"gopkg.in/yaml.v3"
)

// IR is the debug dump written next to each generated file.
type IR struct {
	Entity string `yaml:"entity"`
	Schema string `yaml:"schema"`
	// Order lists the sorted graph nodes.
	Order      []string       `yaml:"order"`
	Create     []string       `yaml:"create,omitempty"`
	Update     []string       `yaml:"update,omitempty"`
	Interfaces []*InterfaceIR `yaml:"interfaces,omitempty"`
}

// InterfaceIR is the dump of one interface.
type InterfaceIR struct {
	Name           string   `yaml:"name"`
	Params         []string `yaml:"params,omitempty"`
	Steps          []string `yaml:"steps,omitempty"`
	Implementation []string `yaml:"implementation,omitempty"`
	Exceptions     []string `yaml:"exceptions,omitempty"`
	Return         string   `yaml:"return,omitempty"`
}

// Marshal renders the dump as YAML.
func (ir *IR) Marshal() ([]byte, error) {
	return yaml.Marshal(ir)
}
