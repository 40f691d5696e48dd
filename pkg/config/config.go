// Package config loads declaration files: the stacks of an app and the tables in them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-playground/validator/v10"
	"github.com/klothoplatform/constructs/pkg/dynamodb"
	"github.com/klothoplatform/constructs/pkg/stack"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type (
	Application struct {
		App    string  `mapstructure:"app" validate:"required"`
		Stacks []Stack `mapstructure:"stacks" validate:"required,min=1,dive"`

		// Format is what format the file was originally in.
		Format string `mapstructure:"-"`
	}

	Stack struct {
		Name        string   `mapstructure:"name" validate:"required,stack_name"`
		Description string   `mapstructure:"description" validate:"max=1024"`
		Region      string   `mapstructure:"region"`
		Account     string   `mapstructure:"account" validate:"omitempty,numeric,len=12"`
		DependsOn   []string `mapstructure:"depends_on"`
		Tables      []Table  `mapstructure:"tables" validate:"dive"`
	}

	Table struct {
		ID           string              `mapstructure:"id" validate:"required"`
		TableName    string              `mapstructure:"table_name"`
		PartitionKey dynamodb.Attribute  `mapstructure:"partition_key"`
		SortKey      *dynamodb.Attribute `mapstructure:"sort_key"`

		BillingMode   types.BillingMode `mapstructure:"billing_mode" validate:"omitempty,oneof=PROVISIONED PAY_PER_REQUEST"`
		ReadCapacity  int               `mapstructure:"read_capacity" validate:"gte=0"`
		WriteCapacity int               `mapstructure:"write_capacity" validate:"gte=0"`

		Stream              types.StreamViewType `mapstructure:"stream" validate:"omitempty,oneof=KEYS_ONLY NEW_IMAGE OLD_IMAGE NEW_AND_OLD_IMAGES"`
		TableClass          types.TableClass     `mapstructure:"table_class" validate:"omitempty,oneof=STANDARD STANDARD_INFREQUENT_ACCESS"`
		TimeToLiveAttribute string               `mapstructure:"ttl_attribute"`
		PointInTimeRecovery bool                 `mapstructure:"point_in_time_recovery"`
		DeletionProtection  bool                 `mapstructure:"deletion_protection"`
		ContributorInsights bool                 `mapstructure:"contributor_insights"`
		RemovalPolicy       stack.RemovalPolicy  `mapstructure:"removal_policy"`

		ReplicationRegions         []string            `mapstructure:"replication_regions" validate:"dive,required"`
		ReplicationTimeout         time.Duration       `mapstructure:"replication_timeout" validate:"gte=0"`
		WaitForReplicationToFinish *bool               `mapstructure:"wait_for_replication_to_finish"`
		ReplicaRemovalPolicy       stack.RemovalPolicy `mapstructure:"replica_removal_policy"`

		GlobalSecondaryIndexes []dynamodb.GlobalSecondaryIndexProps `mapstructure:"global_secondary_indexes" validate:"dive"`
		LocalSecondaryIndexes  []dynamodb.LocalSecondaryIndexProps  `mapstructure:"local_secondary_indexes" validate:"dive"`

		// Outputs exports the table's name and arn from its stack.
		Outputs bool `mapstructure:"outputs"`
	}
)

// ReadConfig reads a declaration file. The format is chosen by extension: .yaml, .yml, .toml
// or .json.
func ReadConfig(fpath string) (*Application, error) {
	content, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	app, err := Parse(content, strings.TrimPrefix(filepath.Ext(fpath), "."))
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", fpath, err)
	}
	zap.L().Named("config").Debug("read declaration",
		zap.String("path", fpath),
		zap.String("app", app.App),
		zap.Int("stacks", len(app.Stacks)),
	)
	return app, nil
}

// Parse decodes and validates a declaration in the given format.
func Parse(content []byte, format string) (*Application, error) {
	raw := make(map[string]any)
	var err error
	switch format {
	case "yaml", "yml":
		format = "yaml"
		err = yaml.Unmarshal(content, &raw)
	case "toml":
		err = toml.Unmarshal(content, &raw)
	case "json":
		err = json.Unmarshal(content, &raw)
	default:
		return nil, fmt.Errorf("unsupported declaration format %q", format)
	}
	if err != nil {
		return nil, err
	}

	app := &Application{Format: format}
	if err := decode(raw, app); err != nil {
		return nil, err
	}
	if err := Validate(app); err != nil {
		return nil, err
	}
	return app, nil
}

func decode(raw map[string]any, app *Application) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			removalPolicyHook,
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           app,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

func removalPolicyHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(stack.RemovalPolicy("")) {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return stack.RemovalPolicy(""), nil
	}
	return stack.ParseRemovalPolicy(s)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("stack_name", func(fl validator.FieldLevel) bool {
		return stack.ValidStackName(fl.Field().String())
	})
	v.RegisterStructValidation(validateApplication, Application{})
	return v
}

// Validate checks an application's declarations, reporting every problem found.
func Validate(app *Application) error {
	err := validate.Struct(app)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid declaration: %w", err)
	}
	errs := make([]error, len(verrs))
	for i, e := range verrs {
		errs[i] = errors.New(formatValidationError(e))
	}
	return errors.Join(errs...)
}

func validateApplication(sl validator.StructLevel) {
	app := sl.Current().Interface().(Application)
	names := make(map[string]bool, len(app.Stacks))
	for _, s := range app.Stacks {
		if names[s.Name] {
			sl.ReportError(app.Stacks, "stacks", "Stacks", "unique_stack", s.Name)
		}
		names[s.Name] = true
	}
	for _, s := range app.Stacks {
		for _, dep := range s.DependsOn {
			if !names[dep] {
				sl.ReportError(s.DependsOn, "depends_on", "DependsOn", "known_stack", dep)
			}
		}
	}
}

func formatValidationError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Application.")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s exceeds maximum length of %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %q)", field, e.Param(), e.Value())
	case "stack_name":
		return fmt.Sprintf("%s is not a valid stack name (got %q)", field, e.Value())
	case "unique_stack":
		return fmt.Sprintf("%s declares stack %q more than once", field, e.Param())
	case "known_stack":
		return fmt.Sprintf("%s references unknown stack %q", field, e.Param())
	default:
		return fmt.Sprintf("%s failed validation %q", field, e.Tag())
	}
}
