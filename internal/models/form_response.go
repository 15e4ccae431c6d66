package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnswerKind tags the variant held by an AnswerValue.
type AnswerKind string

const (
	AnswerString AnswerKind = "string"
	AnswerNumber AnswerKind = "number"
	AnswerBool   AnswerKind = "boolean"
	AnswerList   AnswerKind = "list"
	AnswerURL    AnswerKind = "url"
)

// AnswerValue is one submitted value. Storage keeps only the JSON shape, so a
// URL read back from the database decodes as a string until interpreted
// against its field.
type AnswerValue struct {
	Kind   AnswerKind
	Text   string
	Number float64
	Bool   bool
	List   []string
}

// StringAnswer wraps a text value.
func StringAnswer(s string) AnswerValue {
	return AnswerValue{Kind: AnswerString, Text: s}
}

// NumberAnswer wraps a numeric value.
func NumberAnswer(n float64) AnswerValue {
	return AnswerValue{Kind: AnswerNumber, Number: n}
}

// BoolAnswer wraps a checkbox value.
func BoolAnswer(b bool) AnswerValue {
	return AnswerValue{Kind: AnswerBool, Bool: b}
}

// URLAnswer wraps the durable URL of an uploaded asset.
func URLAnswer(u string) AnswerValue {
	return AnswerValue{Kind: AnswerURL, Text: u}
}

// ListAnswer wraps the values of a multiple select.
func ListAnswer(items []string) AnswerValue {
	return AnswerValue{Kind: AnswerList, List: append([]string{}, items...)}
}

// IsEmpty reports whether the value carries no answer.
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerString, AnswerURL:
		return strings.TrimSpace(v.Text) == ""
	case AnswerList:
		return len(v.List) == 0
	case AnswerNumber, AnswerBool:
		return false
	default:
		return true
	}
}

// Display renders the value for tables and exports.
func (v AnswerValue) Display() string {
	switch v.Kind {
	case AnswerString, AnswerURL:
		return v.Text
	case AnswerNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case AnswerBool:
		if v.Bool {
			return "Yes"
		}
		return "No"
	case AnswerList:
		return strings.Join(v.List, ", ")
	default:
		return ""
	}
}

// MarshalJSON stores the natural JSON shape of the value.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerString, AnswerURL:
		return json.Marshal(v.Text)
	case AnswerNumber:
		return json.Marshal(v.Number)
	case AnswerBool:
		return json.Marshal(v.Bool)
	case AnswerList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the kind from the JSON shape.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*v = AnswerValue{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = StringAnswer(s)
	case '[':
		var raw []interface{}
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			items = append(items, fmt.Sprint(item))
		}
		*v = ListAnswer(items)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = BoolAnswer(b)
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return fmt.Errorf("unsupported answer value %s", trimmed)
		}
		*v = NumberAnswer(n)
	}
	return nil
}

// Answers maps field ids to submitted values, persisted as JSONB.
type Answers map[string]AnswerValue

// Value marshals the answers to JSON for persistence.
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		a = Answers{}
	}
	data, err := json.Marshal(map[string]AnswerValue(a))
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	return data, nil
}

// Scan decodes a JSONB column into the answers.
func (a *Answers) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = Answers{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for Answers", value)
	}
	out := Answers{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, (*map[string]AnswerValue)(&out)); err != nil {
			return fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	*a = out
	return nil
}

// FormResponse is one submitted answer set. It is never mutated after insert.
type FormResponse struct {
	ID           string    `db:"id" json:"id"`
	FormConfigID string    `db:"form_config_id" json:"formConfigId"`
	Responses    Answers   `db:"responses" json:"responses"`
	SubmittedBy  *string   `db:"submitted_by" json:"submittedBy,omitempty"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submittedAt"`
	UserAgent    *string   `db:"user_agent" json:"userAgent,omitempty"`
}
