package feature

import (
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/oolong-dev/oolong/internal/naming"
	"github.com/oolong-dev/oolong/schema"
	"github.com/oolong-dev/oolong/schema/field"
)

// Builtin feature names.
const (
	AutoID                      = "autoId"
	CreateTimestamp             = "createTimestamp"
	UpdateTimestamp             = "updateTimestamp"
	LogicalDeletion             = "logicalDeletion"
	StateTracking               = "stateTracking"
	AtLeastOneNotNull           = "atLeastOneNotNull"
	ValidateAllFieldsOnCreation = "validateAllFieldsOnCreation"
)

var (
	// RuleAutoID prepends an auto generated key field.
	RuleAutoID = &Rule{
		Name:        AutoID,
		Point:       BeforeFields,
		Description: "Adds an auto generated primary key",
		Apply:       autoID,
	}

	// RuleCreateTimestamp adds the creation time of a record.
	RuleCreateTimestamp = &Rule{
		Name:        CreateTimestamp,
		Point:       AfterFields,
		Description: "Adds a read-only creation timestamp filled by the database",
		Apply:       timestamp("createdAt", false),
	}

	// RuleUpdateTimestamp adds the last update time of a record.
	RuleUpdateTimestamp = &Rule{
		Name:        UpdateTimestamp,
		Point:       AfterFields,
		Description: "Adds a read-only update timestamp maintained by the database",
		Apply:       timestamp("updatedAt", true),
	}

	// RuleLogicalDeletion marks records as deleted instead of removing them.
	RuleLogicalDeletion = &Rule{
		Name:        LogicalDeletion,
		Point:       AfterFields,
		Description: "Marks records deleted through a flag field",
		Apply:       logicalDeletion,
	}

	// RuleStateTracking records when an enum field enters each state.
	RuleStateTracking = &Rule{
		Name:        StateTracking,
		Point:       AfterFields,
		Description: "Adds a timestamp field per value of an enum field",
		Apply:       stateTracking,
	}

	// RuleAtLeastOneNotNull requires one of several fields on creation.
	RuleAtLeastOneNotNull = &Rule{
		Name:        AtLeastOneNotNull,
		Point:       AfterLink,
		Description: "Requires at least one of the listed fields to be set",
		Apply:       atLeastOneNotNull,
	}

	// RuleValidateAllFieldsOnCreation makes the runtime validate every field
	// on creation, including absent ones.
	RuleValidateAllFieldsOnCreation = &Rule{
		Name:        ValidateAllFieldsOnCreation,
		Point:       AfterFields,
		Description: "Validates all fields on creation",
		Apply:       func(*schema.Entity, *schema.Feature) error { return nil },
	}

	// AllRules holds the builtin rules.
	AllRules = []*Rule{
		RuleAutoID,
		RuleCreateTimestamp,
		RuleUpdateTimestamp,
		RuleLogicalDeletion,
		RuleStateTracking,
		RuleAtLeastOneNotNull,
		RuleValidateAllFieldsOnCreation,
	}
)

// AutoIDOptions are the options of the autoId feature.
type AutoIDOptions struct {
	Name string `mapstructure:"name"`
	// Type is "int" (auto increment) or "uuid".
	Type      string `mapstructure:"type"`
	StartFrom int    `mapstructure:"startFrom"`
}

// AutoIDConfig returns the normalized options of an autoId feature.
func AutoIDConfig(f *schema.Feature) (AutoIDOptions, error) {
	opts := AutoIDOptions{Name: "id", Type: "int"}
	if err := decode(f, "name", &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func autoID(e *schema.Entity, f *schema.Feature) error {
	opts, err := AutoIDConfig(f)
	if err != nil {
		return err
	}
	id := &field.Field{Name: opts.Name, Auto: true, ReadOnly: true}
	switch opts.Type {
	case "int":
		id.Type = field.TypeInt
		id.AutoIncrement = true
	case "uuid":
		id.Type = field.TypeText
		id.FixedLength = 36
		id.Generator = "uuid"
	default:
		return errors.Newf("unsupported autoId type %q", opts.Type)
	}
	if err := e.Fields.Prepend(id); err != nil {
		return err
	}
	if len(e.Key) == 0 {
		e.Key = []string{opts.Name}
	}
	f.Options = map[string]any{"name": opts.Name, "type": opts.Type, "startFrom": opts.StartFrom}
	return nil
}

// FieldOptions are the options of the features targeting one field.
type FieldOptions struct {
	Field string `mapstructure:"field"`
	Value any    `mapstructure:"value"`
}

func timestamp(name string, onUpdate bool) func(*schema.Entity, *schema.Feature) error {
	return func(e *schema.Entity, f *schema.Feature) error {
		opts := FieldOptions{Field: name}
		if err := decode(f, "field", &opts); err != nil {
			return err
		}
		ts := &field.Field{
			Name:     opts.Field,
			TypeInfo: field.TypeInfo{Type: field.TypeDatetime},
			Auto:     true,
			ReadOnly: true,
			Optional: onUpdate,
		}
		if err := e.Fields.Add(ts); err != nil {
			return err
		}
		f.Options = map[string]any{"field": opts.Field}
		return nil
	}
}

func logicalDeletion(e *schema.Entity, f *schema.Feature) error {
	opts := FieldOptions{Field: "isDeleted", Value: true}
	if err := decode(f, "field", &opts); err != nil {
		return err
	}
	if _, ok := e.Field(opts.Field); !ok {
		if err := e.Fields.Add(&field.Field{
			Name:       opts.Field,
			TypeInfo:   field.TypeInfo{Type: field.TypeBool},
			Default:    false,
			HasDefault: true,
			ReadOnly:   true,
		}); err != nil {
			return err
		}
	}
	f.Options = map[string]any{"field": opts.Field, "value": opts.Value}
	return nil
}

// StateTrackingOptions are the options of the stateTracking feature.
type StateTrackingOptions struct {
	Field []string `mapstructure:"field"`
}

func stateTracking(e *schema.Entity, f *schema.Feature) error {
	var opts StateTrackingOptions
	if err := decode(f, "field", &opts); err != nil {
		return err
	}
	if len(opts.Field) == 0 {
		return errors.New("missing state field")
	}
	for _, name := range opts.Field {
		state, ok := e.Field(name)
		if !ok {
			return errors.Newf("state field %q not found", name)
		}
		if state.Type != field.TypeEnum {
			return errors.Newf("state field %q is not an enum", name)
		}
		for _, v := range state.Values {
			if err := e.Fields.Add(&field.Field{
				Name:     StateTimestampField(name, v),
				TypeInfo: field.TypeInfo{Type: field.TypeDatetime},
				Optional: true,
				ReadOnly: true,
			}); err != nil {
				return err
			}
		}
	}
	f.Options = map[string]any{"field": slices.Clone(opts.Field)}
	return nil
}

// StateTimestampField returns the name of the field recording when field
// entered state.
func StateTimestampField(field, state string) string {
	return field + naming.Pascal(state) + "Timestamp"
}

// Fields lists the fields of the atLeastOneNotNull feature.
type Fields struct {
	Fields []string `mapstructure:"fields"`
}

func atLeastOneNotNull(e *schema.Entity, f *schema.Feature) error {
	var opts Fields
	if err := decode(f, "fields", &opts); err != nil {
		return err
	}
	if len(opts.Fields) < 2 {
		return errors.New("at least two fields are required")
	}
	for _, name := range opts.Fields {
		fd, ok := e.Field(name)
		if !ok {
			return errors.Newf("field %q not found", name)
		}
		fd.Optional = true
	}
	f.Options = map[string]any{"fields": slices.Clone(opts.Fields)}
	return nil
}

// AtLeastOneNotNullFields returns the field groups of every
// atLeastOneNotNull feature of e.
func AtLeastOneNotNullFields(e *schema.Entity) [][]string {
	var groups [][]string
	for _, f := range e.Features {
		if f.Name != AtLeastOneNotNull {
			continue
		}
		var opts Fields
		if err := decode(f, "fields", &opts); err == nil {
			groups = append(groups, opts.Fields)
		}
	}
	return groups
}
