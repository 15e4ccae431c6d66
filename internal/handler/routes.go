package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jobfair-forms-api/internal/middleware"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
)

// Handlers groups the HTTP handlers mounted by RegisterRoutes.
type Handlers struct {
	Forms     *FormHandler
	Sharing   *SharingHandler
	Responses *ResponseHandler
	Public    *PublicFormHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the owner API under apiPrefix, the public API and the public page.
func RegisterRoutes(r *gin.Engine, apiPrefix string, h Handlers, tokens middleware.TokenValidator) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	r.GET("/form/:id", middleware.OptionalJWT(tokens), h.Public.Page)
	r.POST("/form/:id", middleware.OptionalJWT(tokens), h.Public.PageSubmit)

	api := r.Group(apiPrefix)
	api.Use(middleware.WithResponseMeta())

	public := api.Group("/public/forms")
	public.Use(middleware.OptionalJWT(tokens))
	public.GET("/:id", h.Public.Get)
	public.POST("/:id/responses", h.Public.Submit)

	owner := api.Group("/forms")
	owner.Use(middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer))
	owner.GET("", h.Forms.List)
	owner.POST("", h.Forms.Create)
	owner.POST("/import", h.Forms.Import)
	owner.GET("/:id", h.Forms.Get)
	owner.PUT("/:id", h.Forms.Update)
	owner.DELETE("/:id", h.Forms.Delete)
	owner.GET("/:id/preview", h.Forms.Preview)
	owner.GET("/:id/export", h.Forms.Export)
	owner.POST("/:id/duplicate", h.Forms.Duplicate)
	owner.POST("/:id/fields", h.Forms.AddField)
	owner.PUT("/:id/fields/:fieldId", h.Forms.UpdateField)
	owner.DELETE("/:id/fields/:fieldId", h.Forms.RemoveField)
	owner.POST("/:id/fields/:fieldId/move", h.Forms.MoveField)
	owner.POST("/:id/share", h.Sharing.Enable)
	owner.DELETE("/:id/share", h.Sharing.Disable)
	owner.GET("/:id/responses", h.Responses.List)
	owner.GET("/:id/responses/export", h.Responses.Export)
	owner.GET("/:id/stats", h.Responses.Stats)
}
