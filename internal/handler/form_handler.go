package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/middleware"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/response"
)

const maxImportBytes = 1 << 20

type formService interface {
	Create(ctx context.Context, owner string, req dto.CreateFormRequest) (models.FormConfig, error)
	Get(ctx context.Context, id, owner string) (*models.FormConfig, error)
	List(ctx context.Context, owner string, query dto.ListFormsQuery) ([]dto.FormSummary, *models.Pagination, error)
	UpdateMetadata(ctx context.Context, id, owner string, req dto.UpdateFormRequest) (models.FormConfig, error)
	AddField(ctx context.Context, id, owner string, in dto.FieldInput) (models.FormConfig, error)
	UpdateField(ctx context.Context, id, owner, fieldID string, in dto.FieldInput) (models.FormConfig, error)
	RemoveField(ctx context.Context, id, owner, fieldID string) (models.FormConfig, error)
	MoveField(ctx context.Context, id, owner, fieldID string, req dto.MoveFieldRequest) (models.FormConfig, error)
	Duplicate(ctx context.Context, id, owner string, req dto.DuplicateFormRequest) (models.FormConfig, error)
	Delete(ctx context.Context, id, owner string) error
	Import(ctx context.Context, owner string, data []byte, enc service.TransferEncoding) (models.FormConfig, error)
	Export(ctx context.Context, id, owner string, enc service.TransferEncoding) ([]byte, error)
}

type formPreviewer interface {
	Render(cfg *models.FormConfig) dto.RenderedForm
}

// FormHandler exposes the owner-facing configuration endpoints.
type FormHandler struct {
	forms    formService
	renderer formPreviewer
}

// NewFormHandler constructs a form handler.
func NewFormHandler(forms formService, renderer formPreviewer) *FormHandler {
	return &FormHandler{forms: forms, renderer: renderer}
}

// List godoc
// @Summary List own forms
// @Tags Forms
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /forms [get]
func (h *FormHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var query dto.ListFormsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	items, pagination, err := h.forms.List(c.Request.Context(), owner, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create form
// @Tags Forms
// @Accept json
// @Produce json
// @Param payload body dto.CreateFormRequest true "Form payload"
// @Success 201 {object} response.Envelope
// @Router /forms [post]
func (h *FormHandler) Create(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid form payload"))
		return
	}
	cfg, err := h.forms.Create(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// Get godoc
// @Summary Get form
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id} [get]
func (h *FormHandler) Get(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	cfg, err := h.forms.Get(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Update godoc
// @Summary Update form metadata
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.UpdateFormRequest true "Metadata payload"
// @Success 200 {object} response.Envelope
// @Router /forms/{id} [put]
func (h *FormHandler) Update(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid form payload"))
		return
	}
	cfg, err := h.forms.UpdateMetadata(c.Request.Context(), c.Param("id"), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Delete godoc
// @Summary Delete form and its responses
// @Tags Forms
// @Param id path string true "Form ID"
// @Success 204
// @Router /forms/{id} [delete]
func (h *FormHandler) Delete(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	if err := h.forms.Delete(c.Request.Context(), c.Param("id"), owner); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Render form controls without sharing
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/preview [get]
func (h *FormHandler) Preview(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	cfg, err := h.forms.Get(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.renderer.Render(cfg), nil)
}

// Duplicate godoc
// @Summary Duplicate form
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.DuplicateFormRequest false "Optional title"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/duplicate [post]
func (h *FormHandler) Duplicate(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.DuplicateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, bindError(err, "invalid duplicate payload"))
		return
	}
	cfg, err := h.forms.Duplicate(c.Request.Context(), c.Param("id"), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// AddField godoc
// @Summary Append field
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param payload body dto.FieldInput true "Field payload"
// @Success 201 {object} response.Envelope
// @Router /forms/{id}/fields [post]
func (h *FormHandler) AddField(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var in dto.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, bindError(err, "invalid field payload"))
		return
	}
	cfg, err := h.forms.AddField(c.Request.Context(), c.Param("id"), owner, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// UpdateField godoc
// @Summary Update field
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param fieldId path string true "Field ID"
// @Param payload body dto.FieldInput true "Field payload"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/fields/{fieldId} [put]
func (h *FormHandler) UpdateField(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var in dto.FieldInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, bindError(err, "invalid field payload"))
		return
	}
	cfg, err := h.forms.UpdateField(c.Request.Context(), c.Param("id"), owner, c.Param("fieldId"), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// RemoveField godoc
// @Summary Remove field
// @Tags Forms
// @Produce json
// @Param id path string true "Form ID"
// @Param fieldId path string true "Field ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/fields/{fieldId} [delete]
func (h *FormHandler) RemoveField(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	cfg, err := h.forms.RemoveField(c.Request.Context(), c.Param("id"), owner, c.Param("fieldId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// MoveField godoc
// @Summary Move field one step
// @Tags Forms
// @Accept json
// @Produce json
// @Param id path string true "Form ID"
// @Param fieldId path string true "Field ID"
// @Param payload body dto.MoveFieldRequest true "Direction"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/fields/{fieldId}/move [post]
func (h *FormHandler) MoveField(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var req dto.MoveFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid move payload"))
		return
	}
	cfg, err := h.forms.MoveField(c.Request.Context(), c.Param("id"), owner, c.Param("fieldId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Import godoc
// @Summary Import form document
// @Description Accepts a JSON or YAML document as the request body or as multipart field "file".
// @Tags Forms
// @Accept json
// @Accept mpfd
// @Produce json
// @Param format query string false "json or yaml"
// @Success 201 {object} response.Envelope
// @Router /forms/import [post]
func (h *FormHandler) Import(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	data, filename, contentType, err := readImport(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	enc := service.DetectEncoding(contentType, filename, data)
	if raw := c.Query("format"); raw != "" {
		parsed, ok := service.ParseEncoding(raw)
		if !ok {
			response.Error(c, appErrors.WithFields(appErrors.ErrValidation, "unsupported document format", map[string]string{"format": "use json or yaml"}))
			return
		}
		enc = parsed
	}
	cfg, err := h.forms.Import(c.Request.Context(), owner, data, enc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

func readImport(c *gin.Context) ([]byte, string, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			return nil, "", "", bindError(err, "multipart imports need a \"file\" part")
		}
		f, err := file.Open()
		if err != nil {
			return nil, "", "", bindError(err, "could not read uploaded document")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", "", bindError(err, "could not read uploaded document")
		}
		return data, file.Filename, file.Header.Get("Content-Type"), nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, "", "", bindError(err, "document too large")
	}
	if len(data) == 0 {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "document is empty")
	}
	return data, "", c.ContentType(), nil
}

// Export godoc
// @Summary Export form document
// @Tags Forms
// @Produce json
// @Produce plain
// @Param id path string true "Form ID"
// @Param format query string false "json or yaml"
// @Success 200 {file} file
// @Router /forms/{id}/export [get]
func (h *FormHandler) Export(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	enc, valid := service.ParseEncoding(c.Query("format"))
	if !valid {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, "unsupported document format", map[string]string{"format": "use json or yaml"}))
		return
	}
	data, err := h.forms.Export(c.Request.Context(), c.Param("id"), owner, enc)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "application/json"
	if enc == service.EncodingYAML {
		contentType = "application/yaml"
	}
	response.Attachment(c, fmt.Sprintf("form-%s.%s", c.Param("id"), enc), contentType, data)
}
