package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/jobfair-forms-api/internal/middleware"
	"github.com/noah-isme/jobfair-forms-api/internal/models"
	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
	"github.com/noah-isme/jobfair-forms-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireOwner returns the caller's user id or writes 401.
func requireOwner(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || strings.TrimSpace(claims.UserID) == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
