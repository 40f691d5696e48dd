package dynamodb

import (
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/constructs/pkg/set"
)

// MaxNonKeyAttributes is the number of distinct projected non-key attributes allowed across
// all secondary indexes of a table.
const MaxNonKeyAttributes = 100

// Attribute is a key attribute of a table or index.
type Attribute struct {
	Name string                    `mapstructure:"name" validate:"required"`
	Type types.ScalarAttributeType `mapstructure:"type" validate:"required,oneof=S N B"`
}

type keySchemaElement struct {
	name    string
	keyType types.KeyType
}

// attributeRegistry holds the attribute definitions of one table. Definitions are only ever
// added; an attribute keeps the type it was first registered with.
type attributeRegistry struct {
	definitions set.Ordered[string]
	types       map[string]types.ScalarAttributeType
	nonKey      set.Ordered[string]
}

func (r *attributeRegistry) register(a Attribute) error {
	if err := r.check(a); err != nil {
		return err
	}
	if _, ok := r.types[a.Name]; ok {
		return nil
	}
	if r.types == nil {
		r.types = make(map[string]types.ScalarAttributeType)
	}
	r.types[a.Name] = a.Type
	r.definitions.Add(a.Name)
	return nil
}

// check reports whether a can be registered without changing the registry.
func (r *attributeRegistry) check(a Attribute) error {
	if a.Name == "" {
		return fmt.Errorf("attribute name must not be empty")
	}
	if !slices.Contains(a.Type.Values(), a.Type) {
		return fmt.Errorf("attribute %s has unsupported type %q", a.Name, a.Type)
	}
	if existing, ok := r.types[a.Name]; ok && existing != a.Type {
		return fmt.Errorf("unable to set %s with a different type of attribute", a.Name)
	}
	return nil
}

// addNonKey records projected attributes, enforcing the table wide limit.
func (r *attributeRegistry) addNonKey(names []string) error {
	if err := r.checkNonKey(names); err != nil {
		return err
	}
	r.nonKey.Add(names...)
	return nil
}

// checkNonKey reports whether names fit within the table wide limit without recording them.
func (r *attributeRegistry) checkNonKey(names []string) error {
	added := make(set.Set[string])
	for _, n := range names {
		if !r.nonKey.Contains(n) {
			added.Add(n)
		}
	}
	if r.nonKey.Len()+added.Len() > MaxNonKeyAttributes {
		return fmt.Errorf("a maximum number of nonKeyAttributes across all of secondary indexes is %d", MaxNonKeyAttributes)
	}
	return nil
}

func (r *attributeRegistry) attributeDefinitions() []map[string]any {
	names := r.definitions.ToSlice()
	out := make([]map[string]any, len(names))
	for i, n := range names {
		out[i] = map[string]any{
			"AttributeName": n,
			"AttributeType": string(r.types[n]),
		}
	}
	return out
}

func renderKeySchema(keys []keySchemaElement) []map[string]any {
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = map[string]any{
			"AttributeName": k.name,
			"KeyType":       string(k.keyType),
		}
	}
	return out
}
