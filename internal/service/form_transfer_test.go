package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

func richForm() models.FormConfig {
	yes := true
	return savedForm("owner-1",
		&models.TextField{FieldBase: models.FieldBase{ID: "company", Type: models.FieldTypeText, Label: "Company", Placeholder: "Acme Ltd", Required: true}, MinLength: ptrInt(2), MaxLength: ptrInt(80)},
		&models.TextField{FieldBase: models.FieldBase{ID: "email", Type: models.FieldTypeEmail, Label: "Email", Required: true}},
		&models.NumberField{FieldBase: models.FieldBase{ID: "stands", Type: models.FieldTypeNumber, Label: "Stands"}, Min: ptrFloat(1), Max: ptrFloat(4.5)},
		&models.SelectField{FieldBase: models.FieldBase{ID: "sector", Type: models.FieldTypeSelect, Label: "Sector"}, Options: []models.SelectOption{{Value: "10", Label: "yes"}, {Value: "it", Label: "IT: software"}}, Multiple: true},
		&models.CheckboxField{FieldBase: models.FieldBase{ID: "power", Type: models.FieldTypeCheckbox, Label: "Needs power"}, DefaultValue: &yes},
		&models.TextareaField{FieldBase: models.FieldBase{ID: "bio", Type: models.FieldTypeTextarea, Label: "About"}, Rows: ptrInt(5)},
		&models.FileField{FieldBase: models.FieldBase{ID: "logo", Type: models.FieldTypeImage, Label: "Logo"}, AcceptedTypes: []string{"image/png"}, MaxSize: ptrFloat(2)},
	)
}

func TestTransferRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	for _, enc := range []TransferEncoding{EncodingJSON, EncodingYAML} {
		t.Run(string(enc), func(t *testing.T) {
			original := richForm()
			exported, err := ExportConfig(original, enc)
			require.NoError(t, err)
			assert.NotContains(t, string(exported), "owner-1")

			imported, err := ImportConfig(exported, enc, now)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(imported.ID, "imported_"))
			assert.Equal(t, now, imported.UpdatedAt)
			assert.False(t, imported.IsPublic)

			want := original.Clone()
			want.CreatedBy = ""
			if diff := cmp.Diff(want, imported, cmpopts.IgnoreFields(models.FormConfig{}, "ID", "UpdatedAt")); diff != "" {
				t.Fatalf("imported config mismatch (-want +got):\n%s", diff)
			}

			again, err := ExportConfig(imported, enc)
			require.NoError(t, err)
			reimported, err := ImportConfig(again, enc, now)
			require.NoError(t, err)
			if diff := cmp.Diff(imported, reimported, cmpopts.IgnoreFields(models.FormConfig{}, "ID")); diff != "" {
				t.Fatalf("second round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImportAcceptsBareConfig(t *testing.T) {
	doc := `{
  "title": "Visitor survey",
  "fields": [
    {"id": "b", "type": "checkbox", "label": "Again?", "required": false, "order": 5},
    {"id": "a", "type": "text", "label": "Name", "required": true, "order": 1}
  ]
}`
	cfg, err := ImportConfig([]byte(doc), EncodingJSON, time.Now())
	require.NoError(t, err)
	require.Len(t, cfg.Fields, 2)
	assert.Equal(t, "a", cfg.Fields[0].Base().ID)
	assert.Equal(t, 0, cfg.Fields[0].Base().Order)
	assert.Equal(t, 1, cfg.Fields[1].Base().Order)
	assert.Equal(t, "Submit", cfg.SubmitButtonText)
}

func TestImportRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"not an object":  `[1, 2]`,
		"wrong format":   `{"format": "other", "version": 1, "form": {}}`,
		"wrong version":  `{"format": "jobfair.form-config", "version": 9, "form": {}}`,
		"unknown key":    `{"title": "x", "fields": [], "colour": "red"}`,
		"unknown type":   `{"title": "x", "fields": [{"id": "a", "type": "date", "label": "When"}]}`,
		"wrong attr":     `{"title": "x", "fields": [{"id": "a", "type": "text", "label": "Name", "rows": 3}]}`,
		"missing option": `{"title": "x", "fields": [{"id": "a", "type": "select", "label": "Pick"}]}`,
		"missing id":     `{"title": "x", "fields": [{"type": "text", "label": "Name"}]}`,
		"bad number":     `{"title": "x", "fields": [{"id": "a", "type": "number", "label": "N", "min": "one"}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportConfig([]byte(doc), EncodingJSON, time.Now())
			var schemaErr *models.SchemaError
			require.ErrorAs(t, err, &schemaErr)
		})
	}

	_, err := ImportConfig([]byte("title: [unclosed"), EncodingYAML, time.Now())
	var schemaErr *models.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestFormServiceImportLeavesStorageUntouchedOnSchemaError(t *testing.T) {
	store := newFormStoreStub()
	svc := NewFormService(store, nil, nil, nil, FormServiceConfig{})

	_, err := svc.Import(context.Background(), "owner-1", []byte(`{"title": "x", "fields": [{"id": "a", "type": "slider", "label": "L"}]}`), EncodingJSON)
	require.ErrorIs(t, err, appErrors.ErrSchema)
	assert.Equal(t, 0, store.creates)
	assert.Empty(t, store.forms)
}

func TestFormServiceImportCreatesPrivateCopy(t *testing.T) {
	store := newFormStoreStub()
	svc := NewFormService(store, nil, nil, nil, FormServiceConfig{})
	source := richForm()
	source.IsPublic = true
	data, err := ExportConfig(source, EncodingYAML)
	require.NoError(t, err)

	cfg, err := svc.Import(context.Background(), "owner-2", data, EncodingYAML)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, cfg.ID)
	assert.False(t, cfg.IsPublic)
	assert.Equal(t, "owner-2", store.forms[cfg.ID].CreatedBy)
	assert.Equal(t, 1, store.creates)
	assert.True(t, models.EqualFields(source.Fields, cfg.Fields))
}

func TestFormServiceImportSanitizesAuthorText(t *testing.T) {
	store := newFormStoreStub()
	svc := NewFormService(store, nil, nil, nil, FormServiceConfig{})
	doc := `{
  "title": "<b>R&D</b> fair<script>alert(1)</script>",
  "description": "<i>Spring</i> edition",
  "fields": [
    {"id": "a", "type": "text", "label": "<img src=x onerror=alert(1)>Company", "placeholder": "<em>Acme</em>", "required": true},
    {"id": "b", "type": "select", "label": "Sector", "options": [{"value": "<b>it</b>", "label": "<u>IT</u>"}]}
  ]
}`

	cfg, err := svc.Import(context.Background(), "owner-1", []byte(doc), EncodingJSON)
	require.NoError(t, err)
	assert.Equal(t, "R&D fair", cfg.Title)
	assert.Equal(t, "Spring edition", cfg.Description)
	assert.Equal(t, "Company", cfg.Fields[0].Base().Label)
	assert.Equal(t, "Acme", cfg.Fields[0].Base().Placeholder)
	sel, ok := cfg.Fields[1].(*models.SelectField)
	require.True(t, ok)
	assert.Equal(t, []models.SelectOption{{Value: "it", Label: "IT"}}, sel.Options)
	assert.Equal(t, "R&D fair", store.forms[cfg.ID].Title)
}

func TestFormServiceImportRejectsLabelsEmptiedBySanitizing(t *testing.T) {
	store := newFormStoreStub()
	svc := NewFormService(store, nil, nil, nil, FormServiceConfig{})
	doc := `{"title": "Fair", "fields": [{"id": "a", "type": "text", "label": "<script>x</script>"}]}`

	_, err := svc.Import(context.Background(), "owner-1", []byte(doc), EncodingJSON)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "fields[0].label")
	assert.Equal(t, 0, store.creates)
}

func TestEncodingDetection(t *testing.T) {
	enc, ok := ParseEncoding("YML")
	assert.True(t, ok)
	assert.Equal(t, EncodingYAML, enc)
	_, ok = ParseEncoding("xml")
	assert.False(t, ok)

	assert.Equal(t, EncodingYAML, DetectEncoding("application/x-yaml", "", nil))
	assert.Equal(t, EncodingJSON, DetectEncoding("", "form.json", nil))
	assert.Equal(t, EncodingJSON, DetectEncoding("", "", []byte("  {\"title\": 1}")))
	assert.Equal(t, EncodingYAML, DetectEncoding("", "", []byte("title: x")))
}
