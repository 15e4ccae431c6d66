package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldType is the discriminant of a form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeFile     FieldType = "file"
	FieldTypeImage    FieldType = "image"
)

// FieldTypes lists every supported field type in display order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeEmail,
	FieldTypeNumber,
	FieldTypeSelect,
	FieldTypeCheckbox,
	FieldTypeTextarea,
	FieldTypeFile,
	FieldTypeImage,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	for _, known := range FieldTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SchemaError reports a raw value that cannot be decoded into a field or configuration.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Reason)
}

// FieldBase holds the attributes shared by every variant.
type FieldBase struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	Order       int       `json:"order"`
}

// Base exposes the shared attributes for reading and mutation.
func (b *FieldBase) Base() *FieldBase {
	return b
}

// Field is implemented by the pointer of every variant record.
type Field interface {
	Base() *FieldBase
	Clone() Field
}

// TextField covers the text and email variants.
type TextField struct {
	FieldBase
	MinLength *int `json:"minLength,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
}

// NumberField is a numeric input with optional inclusive bounds.
type NumberField struct {
	FieldBase
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// SelectOption is one choice of a select field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SelectField offers a fixed list of options.
type SelectField struct {
	FieldBase
	Options  []SelectOption `json:"options"`
	Multiple bool           `json:"multiple,omitempty"`
}

// CheckboxField is a single boolean toggle.
type CheckboxField struct {
	FieldBase
	DefaultValue *bool `json:"defaultValue,omitempty"`
}

// TextareaField is a multi-line text input.
type TextareaField struct {
	FieldBase
	Rows      *int `json:"rows,omitempty"`
	MaxLength *int `json:"maxLength,omitempty"`
}

// FileField covers the file and image variants. MaxSize is expressed in megabytes.
type FileField struct {
	FieldBase
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSize       *float64 `json:"maxSize,omitempty"`
}

func (f *TextField) Clone() Field {
	c := *f
	c.MinLength = cloneInt(f.MinLength)
	c.MaxLength = cloneInt(f.MaxLength)
	return &c
}

func (f *NumberField) Clone() Field {
	c := *f
	c.Min = cloneFloat(f.Min)
	c.Max = cloneFloat(f.Max)
	return &c
}

func (f *SelectField) Clone() Field {
	c := *f
	c.Options = append([]SelectOption{}, f.Options...)
	return &c
}

// HasOption reports whether value is one of the configured option values.
func (f *SelectField) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// MarshalJSON always encodes options, even when empty.
func (f *SelectField) MarshalJSON() ([]byte, error) {
	type plain SelectField
	c := plain(*f)
	if c.Options == nil {
		c.Options = []SelectOption{}
	}
	return json.Marshal(c)
}

func (f *CheckboxField) Clone() Field {
	c := *f
	if f.DefaultValue != nil {
		v := *f.DefaultValue
		c.DefaultValue = &v
	}
	return &c
}

func (f *TextareaField) Clone() Field {
	c := *f
	c.Rows = cloneInt(f.Rows)
	c.MaxLength = cloneInt(f.MaxLength)
	return &c
}

func (f *FileField) Clone() Field {
	c := *f
	if f.AcceptedTypes != nil {
		c.AcceptedTypes = append([]string{}, f.AcceptedTypes...)
	}
	c.MaxSize = cloneFloat(f.MaxSize)
	return &c
}

// NewField returns an empty variant record for the type.
func NewField(t FieldType) (Field, error) {
	var f Field
	switch t {
	case FieldTypeText, FieldTypeEmail:
		f = &TextField{}
	case FieldTypeNumber:
		f = &NumberField{}
	case FieldTypeSelect:
		f = &SelectField{Options: []SelectOption{}}
	case FieldTypeCheckbox:
		f = &CheckboxField{}
	case FieldTypeTextarea:
		f = &TextareaField{}
	case FieldTypeFile, FieldTypeImage:
		f = &FileField{}
	default:
		return nil, &SchemaError{Path: "type", Reason: fmt.Sprintf("unknown field type %q", t)}
	}
	f.Base().Type = t
	return f, nil
}

// DecodeField matches the type discriminant and strictly decodes the matching variant.
func DecodeField(raw []byte) (Field, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, &SchemaError{Reason: "field must be an object"}
	}
	tag, ok := attrs["type"]
	if !ok {
		return nil, &SchemaError{Path: "type", Reason: "missing field type"}
	}
	var t FieldType
	if err := json.Unmarshal(tag, &t); err != nil {
		return nil, &SchemaError{Path: "type", Reason: "field type must be a string"}
	}
	field, err := NewField(t)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(field); err != nil {
		return nil, decodeSchemaError(err)
	}

	base := field.Base()
	if strings.TrimSpace(base.ID) == "" {
		return nil, &SchemaError{Path: "id", Reason: "field id is required"}
	}
	if strings.TrimSpace(base.Label) == "" {
		return nil, &SchemaError{Path: base.ID + ".label", Reason: "field label is required"}
	}
	if t == FieldTypeSelect {
		opts, ok := attrs["options"]
		if !ok || string(bytes.TrimSpace(opts)) == "null" {
			return nil, &SchemaError{Path: base.ID + ".options", Reason: "select field requires options"}
		}
	}
	return field, nil
}

func decodeSchemaError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &SchemaError{Path: typeErr.Field, Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		return &SchemaError{Path: strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`), Reason: "attribute not defined for this field type"}
	}
	return &SchemaError{Reason: msg}
}

// FieldList is the ordered field collection of a configuration, persisted as JSONB.
type FieldList []Field

// MarshalJSON encodes the list, never as null.
func (l FieldList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Field(l))
}

// UnmarshalJSON decodes every element through DecodeField.
func (l *FieldList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return &SchemaError{Path: "fields", Reason: "fields must be an array"}
	}
	out := make(FieldList, 0, len(raws))
	for i, raw := range raws {
		field, err := DecodeField(raw)
		if err != nil {
			var schemaErr *SchemaError
			if errors.As(err, &schemaErr) {
				prefix := fmt.Sprintf("fields[%d]", i)
				if schemaErr.Path != "" {
					prefix += "." + schemaErr.Path
				}
				return &SchemaError{Path: prefix, Reason: schemaErr.Reason}
			}
			return err
		}
		out = append(out, field)
	}
	*l = out
	return nil
}

// Value marshals the list to JSON for persistence.
func (l FieldList) Value() (driver.Value, error) {
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal form fields: %w", err)
	}
	return data, nil
}

// Scan decodes a JSONB column into the list.
func (l *FieldList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = FieldList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for FieldList", value)
	}
	if len(data) == 0 {
		*l = FieldList{}
		return nil
	}
	return l.UnmarshalJSON(data)
}

// Clone deep copies the list.
func (l FieldList) Clone() FieldList {
	out := make(FieldList, len(l))
	for i, f := range l {
		out[i] = f.Clone()
	}
	return out
}

// EqualFields reports structural equality of two field lists, comparing
// their encoded form so nil and empty collections are equivalent.
func EqualFields(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		left, errA := json.Marshal(a[i])
		right, errB := json.Marshal(b[i])
		if errA != nil || errB != nil || !bytes.Equal(left, right) {
			return false
		}
	}
	return true
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
