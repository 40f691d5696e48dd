package dynamodb

import (
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/klothoplatform/constructs/pkg/construct"
	"github.com/klothoplatform/constructs/pkg/set"
	"go.uber.org/zap"
)

// MaxLocalSecondaryIndexes is the number of local secondary indexes a table may have.
const MaxLocalSecondaryIndexes = 5

type (
	// Projection selects the attributes copied into an index. Type defaults to ALL.
	Projection struct {
		Type             types.ProjectionType `mapstructure:"type" validate:"omitempty,oneof=ALL KEYS_ONLY INCLUDE"`
		NonKeyAttributes []string             `mapstructure:"non_key_attributes"`
	}

	GlobalSecondaryIndexProps struct {
		IndexName     string     `mapstructure:"name" validate:"required"`
		PartitionKey  Attribute  `mapstructure:"partition_key"`
		SortKey       *Attribute `mapstructure:"sort_key"`
		Projection    Projection `mapstructure:"projection"`
		ReadCapacity  int        `mapstructure:"read_capacity" validate:"gte=0"`
		WriteCapacity int        `mapstructure:"write_capacity" validate:"gte=0"`
	}

	LocalSecondaryIndexProps struct {
		IndexName  string     `mapstructure:"name" validate:"required"`
		SortKey    Attribute  `mapstructure:"sort_key"`
		Projection Projection `mapstructure:"projection"`
	}

	globalIndex struct {
		name       string
		keySchema  []keySchemaElement
		projection Projection
		throughput map[string]any
	}

	localIndex struct {
		name       string
		keySchema  []keySchemaElement
		projection Projection
	}
)

// AddGlobalSecondaryIndex adds a global secondary index. Its key attributes are registered with
// the table's attribute definitions.
func (t *Table) AddGlobalSecondaryIndex(props GlobalSecondaryIndexProps) error {
	if err := t.validateIndexName(props.IndexName); err != nil {
		return err
	}
	if props.PartitionKey.Name == "" {
		return construct.NewValidationError(t, "global secondary index %s requires a partition key", props.IndexName)
	}

	var tp map[string]any
	switch t.billingMode {
	case types.BillingModePayPerRequest:
		if props.ReadCapacity != 0 || props.WriteCapacity != 0 {
			return construct.NewValidationError(t,
				"you cannot provision read and write capacity for a table with PAY_PER_REQUEST billing mode")
		}
	case types.BillingModeProvisioned:
		tp = throughput(props.ReadCapacity, props.WriteCapacity)
	}

	keys := []keySchemaElement{{name: props.PartitionKey.Name, keyType: types.KeyTypeHash}}
	attrs := []Attribute{props.PartitionKey}
	if props.SortKey != nil {
		keys = append(keys, keySchemaElement{name: props.SortKey.Name, keyType: types.KeyTypeRange})
		attrs = append(attrs, *props.SortKey)
	}
	projection, err := t.buildProjection(props.IndexName, props.Projection, keys)
	if err != nil {
		return err
	}
	if err := t.registerIndexAttributes(attrs, projection.NonKeyAttributes); err != nil {
		return err
	}

	t.indexNames.Add(props.IndexName)
	t.globalIndexes = append(t.globalIndexes, globalIndex{
		name:       props.IndexName,
		keySchema:  keys,
		projection: projection,
		throughput: tp,
	})
	t.log.Debug("added global secondary index", zap.String("index", props.IndexName))
	return nil
}

// AddLocalSecondaryIndex adds a local secondary index. It shares the table's partition key, so
// the table must have a sort key.
func (t *Table) AddLocalSecondaryIndex(props LocalSecondaryIndexProps) error {
	if len(t.localIndexes) >= MaxLocalSecondaryIndexes {
		return construct.NewValidationError(t,
			"a maximum number of local secondary index per table is %d", MaxLocalSecondaryIndexes)
	}
	if t.props.SortKey == nil {
		return construct.NewValidationError(t, "a sort key of the table must be specified to add local secondary indexes")
	}
	if err := t.validateIndexName(props.IndexName); err != nil {
		return err
	}
	if props.SortKey.Name == "" {
		return construct.NewValidationError(t, "local secondary index %s requires a sort key", props.IndexName)
	}

	keys := []keySchemaElement{
		{name: t.props.PartitionKey.Name, keyType: types.KeyTypeHash},
		{name: props.SortKey.Name, keyType: types.KeyTypeRange},
	}
	projection, err := t.buildProjection(props.IndexName, props.Projection, keys)
	if err != nil {
		return err
	}
	if err := t.registerIndexAttributes([]Attribute{t.props.PartitionKey, props.SortKey}, projection.NonKeyAttributes); err != nil {
		return err
	}

	t.indexNames.Add(props.IndexName)
	t.localIndexes = append(t.localIndexes, localIndex{
		name:       props.IndexName,
		keySchema:  keys,
		projection: projection,
	})
	t.log.Debug("added local secondary index", zap.String("index", props.IndexName))
	return nil
}

// registerIndexAttributes registers key and projected attributes of a new index. Nothing is
// registered if any of them is rejected.
func (t *Table) registerIndexAttributes(keys []Attribute, nonKey []string) error {
	for i, a := range keys {
		if err := t.attributes.check(a); err != nil {
			return construct.NewValidationError(t, "%s", err)
		}
		for _, other := range keys[:i] {
			if other.Name == a.Name {
				return construct.NewValidationError(t, "key attribute %s is used more than once in the index key schema", a.Name)
			}
		}
	}
	if err := t.attributes.checkNonKey(nonKey); err != nil {
		return construct.NewValidationError(t, "%s", err)
	}
	// Everything was checked above, so nothing below can fail.
	for _, a := range keys {
		_ = t.attributes.register(a)
	}
	_ = t.attributes.addNonKey(nonKey)
	return nil
}

func (t *Table) validateIndexName(name string) error {
	if name == "" {
		return construct.NewValidationError(t, "index name must not be empty")
	}
	if t.indexNames.Contains(name) {
		return construct.NewValidationError(t, "a duplicate index name, %s, is not allowed", name)
	}
	return nil
}

func (t *Table) buildProjection(index string, p Projection, indexKeys []keySchemaElement) (Projection, error) {
	if p.Type == "" {
		p.Type = types.ProjectionTypeAll
	}
	if !slices.Contains(p.Type.Values(), p.Type) {
		return p, construct.NewValidationError(t, "index %s has unsupported projection type %q", index, p.Type)
	}
	if p.Type == types.ProjectionTypeInclude && len(p.NonKeyAttributes) == 0 {
		return p, construct.NewValidationError(t,
			"index %s: non-key attributes should be specified when using INCLUDE projection type", index)
	}
	if p.Type != types.ProjectionTypeInclude && len(p.NonKeyAttributes) > 0 {
		return p, construct.NewValidationError(t,
			"index %s: non-key attributes should not be specified when not using INCLUDE projection type", index)
	}
	isKey := func(name string) bool {
		match := func(k keySchemaElement) bool { return k.name == name }
		return slices.ContainsFunc(t.keySchema, match) || slices.ContainsFunc(indexKeys, match)
	}
	for _, a := range p.NonKeyAttributes {
		if isKey(a) {
			return p, construct.NewValidationError(t,
				"index %s: key attribute %s must not be projected as a non-key attribute", index, a)
		}
	}
	// Repeated names are projected once.
	p.NonKeyAttributes = set.OrderedOf(p.NonKeyAttributes...).ToSlice()
	return p, nil
}

func (p Projection) render() map[string]any {
	out := map[string]any{"ProjectionType": string(p.Type)}
	if len(p.NonKeyAttributes) > 0 {
		out["NonKeyAttributes"] = p.NonKeyAttributes
	}
	return out
}

func (t *Table) renderGlobalIndexes() any {
	if len(t.globalIndexes) == 0 {
		return nil
	}
	out := make([]map[string]any, len(t.globalIndexes))
	for i, idx := range t.globalIndexes {
		out[i] = map[string]any{
			"IndexName":  idx.name,
			"KeySchema":  renderKeySchema(idx.keySchema),
			"Projection": idx.projection.render(),
		}
		if idx.throughput != nil {
			out[i]["ProvisionedThroughput"] = idx.throughput
		}
	}
	return out
}

func (t *Table) renderLocalIndexes() any {
	if len(t.localIndexes) == 0 {
		return nil
	}
	out := make([]map[string]any, len(t.localIndexes))
	for i, idx := range t.localIndexes {
		out[i] = map[string]any{
			"IndexName":  idx.name,
			"KeySchema":  renderKeySchema(idx.keySchema),
			"Projection": idx.projection.render(),
		}
	}
	return out
}
