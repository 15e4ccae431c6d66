package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

// Interchange document identity.
const (
	TransferFormat  = "jobfair.form-config"
	TransferVersion = 1

	importedIDPrefix = "imported_"
)

// TransferEncoding selects the document syntax.
type TransferEncoding string

const (
	EncodingJSON TransferEncoding = "json"
	EncodingYAML TransferEncoding = "yaml"
)

type transferDocument struct {
	Format  string            `json:"format"`
	Version int               `json:"version"`
	Form    models.FormConfig `json:"form"`
}

// ParseEncoding maps a user supplied name onto an encoding.
func ParseEncoding(raw string) (TransferEncoding, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json":
		return EncodingJSON, true
	case "yaml", "yml":
		return EncodingYAML, true
	default:
		return "", false
	}
}

// DetectEncoding guesses the syntax of an uploaded document.
func DetectEncoding(contentType, filename string, data []byte) TransferEncoding {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "yaml"):
		return EncodingYAML
	case strings.Contains(ct, "json"):
		return EncodingJSON
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return EncodingYAML
	case ".json":
		return EncodingJSON
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return EncodingJSON
	}
	return EncodingYAML
}

// ExportConfig serializes a configuration as-is, id included, owner excluded.
func ExportConfig(cfg models.FormConfig, enc TransferEncoding) ([]byte, error) {
	cfg = cfg.Clone()
	cfg.CreatedBy = ""
	doc := transferDocument{Format: TransferFormat, Version: TransferVersion, Form: cfg}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode form document: %w", err)
	}
	if enc != EncodingYAML {
		return append(data, '\n'), nil
	}

	// JSON is valid YAML; decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert form document: %w", err)
	}
	resetStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, fmt.Errorf("encode yaml form document: %w", err)
	}
	return out, nil
}

// ImportConfig strictly decodes a document, or a bare configuration, into an
// unsaved draft carrying a fresh local id.
func ImportConfig(data []byte, enc TransferEncoding, now time.Time) (models.FormConfig, error) {
	raw := data
	if enc == EncodingYAML {
		var tree interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return models.FormConfig{}, &models.SchemaError{Reason: "document is not valid YAML: " + err.Error()}
		}
		converted, err := json.Marshal(tree)
		if err != nil {
			return models.FormConfig{}, &models.SchemaError{Reason: "document must use string keys"}
		}
		raw = converted
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return models.FormConfig{}, &models.SchemaError{Reason: "document must be an object"}
	}

	var cfg models.FormConfig
	if _, ok := probe["format"]; ok {
		var doc transferDocument
		if err := decodeStrict(raw, &doc); err != nil {
			return models.FormConfig{}, err
		}
		if doc.Format != TransferFormat {
			return models.FormConfig{}, &models.SchemaError{Path: "format", Reason: fmt.Sprintf("unsupported document format %q", doc.Format)}
		}
		if doc.Version != TransferVersion {
			return models.FormConfig{}, &models.SchemaError{Path: "version", Reason: fmt.Sprintf("unsupported document version %d", doc.Version)}
		}
		if _, ok := probe["form"]; !ok {
			return models.FormConfig{}, &models.SchemaError{Path: "form", Reason: "missing form"}
		}
		cfg = doc.Form
	} else if err := decodeStrict(raw, &cfg); err != nil {
		return models.FormConfig{}, err
	}

	cfg.Fields = models.FieldList(cfg.SortedFields())
	cfg.NormalizeOrder()
	cfg.ID = importedIDPrefix + uuid.NewString()
	cfg.CreatedBy = ""
	cfg.IsPublic = false
	cfg.UpdatedAt = now.UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = cfg.UpdatedAt
	}
	if strings.TrimSpace(cfg.SubmitButtonText) == "" {
		cfg.SubmitButtonText = models.DefaultSubmitButtonText
	}
	return cfg, nil
}

func decodeStrict(raw []byte, dest interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			return schemaErr
		}
		return &models.SchemaError{Reason: strings.TrimPrefix(err.Error(), "json: ")}
	}
	return nil
}

func resetStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		resetStyle(child)
	}
}
