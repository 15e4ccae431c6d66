package handler

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

var companyField = map[string]interface{}{"type": "text", "label": "Company", "required": true}

func TestFormRoutesRequireOrganizerRole(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/forms", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/v1/forms", "forged", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/v1/forms", "exhibitor", nil, "").Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/v1/forms", "owner-1", nil, "").Code)
}

func TestFormLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)

	w := app.doJSON(t, http.MethodPost, "/api/v1/forms", "owner-1", map[string]interface{}{
		"title":  "Exhibitor registration",
		"fields": []interface{}{companyField},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cfg models.FormConfig
	decodeEnvelope(t, w, &cfg)
	require.NotEmpty(t, cfg.ID)
	base := "/api/v1/forms/" + cfg.ID

	w = app.doJSON(t, http.MethodPost, base+"/fields", "owner-1", map[string]interface{}{"type": "email", "label": "Email", "required": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeEnvelope(t, w, &cfg)
	require.Len(t, cfg.Fields, 2)
	emailID := cfg.Fields[1].Base().ID

	w = app.doJSON(t, http.MethodPost, base+"/fields/"+emailID+"/move", "owner-1", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeEnvelope(t, w, &cfg)
	assert.Equal(t, emailID, cfg.Fields[0].Base().ID)

	w = app.doJSON(t, http.MethodPut, base+"/fields/"+emailID, "owner-1", map[string]interface{}{"label": "Contact email", "required": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.doJSON(t, http.MethodPut, base, "owner-1", map[string]interface{}{"title": "Exhibitors 2024", "submitButtonText": "Register"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, base+"/preview", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var preview dto.RenderedForm
	decodeEnvelope(t, w, &preview)
	assert.Equal(t, "Register", preview.SubmitButtonText)
	assert.Equal(t, "Contact email", preview.Controls[0].Label)

	w = app.do(t, http.MethodGet, "/api/v1/forms?page=1&page_size=10", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []dto.FormSummary
	env := decodeEnvelope(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Exhibitors 2024", items[0].Title)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	w = app.do(t, http.MethodPost, base+"/duplicate", "owner-1", nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dup models.FormConfig
	decodeEnvelope(t, w, &dup)
	assert.Equal(t, "Exhibitors 2024 (copy)", dup.Title)

	w = app.do(t, http.MethodDelete, base+"/fields/"+emailID, "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeEnvelope(t, w, &cfg)
	assert.Len(t, cfg.Fields, 1)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, base, "owner-2", nil, "").Code)
	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, base, "owner-1", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, base, "owner-1", nil, "").Code)
}

func TestCreateFormValidationErrors(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/forms", "owner-1", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.doJSON(t, http.MethodPost, "/api/v1/forms", "owner-1", map[string]interface{}{
		"title":  "",
		"fields": []interface{}{},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotEmpty(t, env.Error.Fields)
}

func TestImportAndExportOverHTTP(t *testing.T) {
	app := newTestApp(t)
	doc := `format: jobfair.form-config
version: 1
form:
  title: Visitor survey
  fields:
    - id: name
      type: text
      label: Name
      required: true
      order: 0
`
	w := app.do(t, http.MethodPost, "/api/v1/forms/import", "owner-1", strings.NewReader(doc), "application/x-yaml")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cfg models.FormConfig
	decodeEnvelope(t, w, &cfg)
	assert.Equal(t, "Visitor survey", cfg.Title)
	assert.False(t, cfg.IsPublic)

	w = app.do(t, http.MethodGet, "/api/v1/forms/"+cfg.ID+"/export?format=yaml", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".yaml")
	assert.Contains(t, w.Body.String(), "format: jobfair.form-config")

	w = app.do(t, http.MethodPost, "/api/v1/forms/import", "owner-1", strings.NewReader(`{"title":"x","fields":[{"id":"a","type":"slider","label":"L"}]}`), "application/json")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "SCHEMA_ERROR", decodeEnvelope(t, w, nil).Error.Code)
	assert.Len(t, app.forms.items, 1)

	w = app.do(t, http.MethodPost, "/api/v1/forms/import?format=xml", "owner-1", bytes.NewReader([]byte("{}")), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
