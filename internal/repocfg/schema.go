package repocfg

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Problem describes one schema violation in a configuration document.
type Problem struct {
	Field       string
	Description string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Field, p.Description)
}

// ValidateYAML checks a YAML configuration document against the given JSON
// schema, or against the embedded schema when schema is nil. It returns the
// list of violations; a nil, nil return means the document is valid.
func ValidateYAML(doc, schema []byte) ([]Problem, error) {
	var decoded any

	err := yaml.Unmarshal(doc, &decoded)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if schema == nil {
		schema = schemaJSON
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema)
	docLoader := gojsonschema.NewGoLoader(decoded)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate schema: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	problems := make([]Problem, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		problems = append(problems, Problem{Field: verr.Field(), Description: verr.Description()})
	}

	return problems, nil
}
