package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditDenied records an audit entry whenever a request under the group
// ends in 401 or 403.
func AuditDenied(repo auditWriter, resource string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if repo == nil || (status != http.StatusUnauthorized && status != http.StatusForbidden) {
			return
		}

		entry := &models.AuditLog{
			Action:    models.AuditActionAccessDenied,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			CreatedAt: time.Now().UTC(),
		}
		if principal := PrincipalFromContext(c); principal != nil {
			entry.ActorRole = principal.Role
			if principal.ID != "" {
				id := principal.ID
				entry.ActorID = &id
			}
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"path":   c.FullPath(),
			"method": c.Request.Method,
			"status": status,
		})

		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			logger.Warn("failed to record denied request", zap.String("path", c.FullPath()), zap.Error(err))
		}
	}
}
