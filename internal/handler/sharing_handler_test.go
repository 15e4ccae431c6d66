package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

func TestShareRequiresOwnership(t *testing.T) {
	app := newTestApp(t)
	w := app.doJSON(t, http.MethodPost, "/api/v1/forms", "owner-1", map[string]interface{}{
		"title":  "Private",
		"fields": []interface{}{companyField},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cfg models.FormConfig
	decodeEnvelope(t, w, &cfg)

	w = app.do(t, http.MethodPost, "/api/v1/forms/"+cfg.ID+"/share", "owner-2", nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, w, nil).Error.Code)
	assert.False(t, app.forms.items[cfg.ID].IsPublic)

	w = app.do(t, http.MethodPost, "/api/v1/forms/"+cfg.ID+"/share", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var share dto.ShareResponse
	decodeEnvelope(t, w, &share)
	assert.True(t, share.IsPublic)
	assert.Equal(t, "https://fair.example.com/form/"+cfg.ID, share.ShareURL)

	w = app.do(t, http.MethodDelete, "/api/v1/forms/"+cfg.ID+"/share", "owner-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, app.forms.items[cfg.ID].IsPublic)
}

func TestPublicLookupDoesNotRevealPrivateForms(t *testing.T) {
	app := newTestApp(t)
	w := app.doJSON(t, http.MethodPost, "/api/v1/forms", "owner-1", map[string]interface{}{
		"title":  "Private",
		"fields": []interface{}{companyField},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var cfg models.FormConfig
	decodeEnvelope(t, w, &cfg)

	private := app.do(t, http.MethodGet, "/api/v1/public/forms/"+cfg.ID, "", nil, "")
	missing := app.do(t, http.MethodGet, "/api/v1/public/forms/"+uuid.NewString(), "", nil, "")

	require.Equal(t, http.StatusNotFound, private.Code)
	require.Equal(t, missing.Code, private.Code)
	assert.Equal(t, missing.Body.String(), private.Body.String())

	privatePage := app.do(t, http.MethodGet, "/form/"+cfg.ID, "", nil, "")
	missingPage := app.do(t, http.MethodGet, "/form/"+uuid.NewString(), "", nil, "")
	assert.Equal(t, http.StatusNotFound, privatePage.Code)
	assert.Equal(t, missingPage.Body.String(), privatePage.Body.String())
}
