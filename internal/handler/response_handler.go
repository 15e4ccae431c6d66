package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/internal/middleware"
	"github.com/noah-isme/jobfair-forms-api/internal/service"
	"github.com/noah-isme/jobfair-forms-api/pkg/response"
)

type responseService interface {
	List(ctx context.Context, formID, owner string) ([]dto.ResponseView, error)
	Stats(ctx context.Context, formID, owner string) (*dto.FormStats, error)
	Export(ctx context.Context, formID, owner, format string) (*service.ExportResult, error)
}

// ResponseHandler exposes stored responses to form owners.
type ResponseHandler struct {
	responses responseService
}

// NewResponseHandler constructs a response handler.
func NewResponseHandler(responses responseService) *ResponseHandler {
	return &ResponseHandler{responses: responses}
}

// List godoc
// @Summary List form responses
// @Tags Responses
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/responses [get]
func (h *ResponseHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	views, err := h.responses.List(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "total", len(views))
	response.JSON(c, http.StatusOK, views, nil, middleware.ExtractMeta(c))
}

// Stats godoc
// @Summary Response statistics
// @Tags Responses
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Router /forms/{id}/stats [get]
func (h *ResponseHandler) Stats(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	stats, err := h.responses.Stats(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export responses
// @Tags Responses
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Form ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /forms/{id}/responses/export [get]
func (h *ResponseHandler) Export(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	result, err := h.responses.Export(c.Request.Context(), c.Param("id"), owner, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}
