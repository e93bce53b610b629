package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VipuDevAI/Prashnakosh-sub002/internal/middleware"
	"github.com/VipuDevAI/Prashnakosh-sub002/internal/models"
	appErrors "github.com/VipuDevAI/Prashnakosh-sub002/pkg/errors"
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

// resolveTenantID picks the school scope for the request. Regular users are
// pinned to their token's tenant; super admins name one with ?tenantId=.
func resolveTenantID(c *gin.Context, claims *models.JWTClaims) (string, error) {
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleSuperAdmin {
		return claims.TenantID, nil
	}
	if tenantID := strings.TrimSpace(c.Query("tenantId")); tenantID != "" {
		return tenantID, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "tenantId query parameter is required for super admin requests")
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || size < 1 {
		size = 20
	}
	return page, size
}

func boolQuery(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return nil
}
