package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jobfair-forms-api/internal/dto"
	"github.com/noah-isme/jobfair-forms-api/pkg/response"
)

type sharingService interface {
	EnableSharing(ctx context.Context, id, actor string) (*dto.ShareResponse, error)
	DisableSharing(ctx context.Context, id, actor string) (*dto.ShareResponse, error)
}

// SharingHandler toggles public access to forms.
type SharingHandler struct {
	sharing sharingService
}

// NewSharingHandler constructs a sharing handler.
func NewSharingHandler(sharing sharingService) *SharingHandler {
	return &SharingHandler{sharing: sharing}
}

// Enable godoc
// @Summary Share form publicly
// @Tags Sharing
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/{id}/share [post]
func (h *SharingHandler) Enable(c *gin.Context) {
	h.toggle(c, h.sharing.EnableSharing)
}

// Disable godoc
// @Summary Stop sharing form
// @Tags Sharing
// @Produce json
// @Param id path string true "Form ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /forms/{id}/share [delete]
func (h *SharingHandler) Disable(c *gin.Context) {
	h.toggle(c, h.sharing.DisableSharing)
}

func (h *SharingHandler) toggle(c *gin.Context, apply func(ctx context.Context, id, actor string) (*dto.ShareResponse, error)) {
	actor, ok := requireOwner(c)
	if !ok {
		return
	}
	resp, err := apply(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
