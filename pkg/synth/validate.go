package synth

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/template.schema.json
var templateSchema string

const templateSchemaURL = "file:///template.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString(templateSchemaURL, templateSchema)
	})
	return compiledSchema, schemaErr
}

// ValidateTemplate checks the structure of a rendered template: section names, logical ids,
// resource types and policies.
func ValidateTemplate(t *stack.Template) error {
	sch, err := loadSchema()
	if err != nil {
		return fmt.Errorf("could not compile template schema: %w", err)
	}
	content, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var document any
	if err := json.Unmarshal(content, &document); err != nil {
		return err
	}
	return sch.Validate(document)
}
