package models

import (
	"sort"
	"strings"
	"time"
)

// DefaultSubmitButtonText is used when a configuration carries no submit label.
const DefaultSubmitButtonText = "Submit"

// FormConfig is the persisted aggregate of fields, metadata and sharing state.
type FormConfig struct {
	ID               string    `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description,omitempty"`
	Fields           FieldList `db:"fields" json:"fields"`
	SubmitButtonText string    `db:"submit_button_text" json:"submitButtonText"`
	IsActive         bool      `db:"is_active" json:"isActive"`
	IsPublic         bool      `db:"is_public" json:"isPublic"`
	CreatedBy        string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// NewFormConfig returns an unsaved draft with no fields.
func NewFormConfig() FormConfig {
	return FormConfig{
		Fields:           FieldList{},
		SubmitButtonText: DefaultSubmitButtonText,
		IsActive:         true,
	}
}

// ConfigError lists form-level constraint violations keyed by attribute.
type ConfigError struct {
	Problems map[string]string
}

func (e *ConfigError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for key := range e.Problems {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Problems[key])
	}
	return "invalid form configuration: " + strings.Join(parts, "; ")
}

// Validate checks the constraints enforced on save.
func (c *FormConfig) Validate() error {
	problems := map[string]string{}
	if strings.TrimSpace(c.Title) == "" {
		problems["title"] = "title is required"
	}
	if len(c.Fields) == 0 {
		problems["fields"] = "at least one field is required"
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		id := f.Base().ID
		if _, dup := seen[id]; dup {
			problems["fields"] = "field ids must be unique"
			break
		}
		seen[id] = struct{}{}
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// NormalizeOrder rewrites every order to its list position.
func (c *FormConfig) NormalizeOrder() {
	for i, f := range c.Fields {
		f.Base().Order = i
	}
}

// SortedFields returns the fields ascending by order. Ties keep list position.
func (c *FormConfig) SortedFields() []Field {
	out := append([]Field{}, c.Fields...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Base().Order < out[j].Base().Order
	})
	return out
}

// FieldByID returns the field and its index, or nil and -1.
func (c *FormConfig) FieldByID(id string) (Field, int) {
	for i, f := range c.Fields {
		if f.Base().ID == id {
			return f, i
		}
	}
	return nil, -1
}

// SubmitLabel returns the submit label, falling back to the default.
func (c *FormConfig) SubmitLabel() string {
	if strings.TrimSpace(c.SubmitButtonText) == "" {
		return DefaultSubmitButtonText
	}
	return c.SubmitButtonText
}

// Clone deep copies the configuration.
func (c FormConfig) Clone() FormConfig {
	c.Fields = c.Fields.Clone()
	return c
}
