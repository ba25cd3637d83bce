package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/avesta-labs/lms-content-api/internal/middleware"
	"github.com/avesta-labs/lms-content-api/internal/models"
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

// scopeFromContext derives the tenant scope of a class-bound route from the
// token claims and the classId path parameter.
func scopeFromContext(c *gin.Context) models.Scope {
	scope := models.Scope{ClassID: c.Param("classId")}
	if claims := claimsFromContext(c); claims != nil {
		scope.InstitutionID = claims.InstitutionID
	}
	return scope
}
