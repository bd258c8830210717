package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/clinic-api/internal/models"
	appErrors "github.com/noah-isme/clinic-api/pkg/errors"
	"github.com/noah-isme/clinic-api/pkg/logger"
	"github.com/noah-isme/clinic-api/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the resolved *models.Principal.
const ContextPrincipalKey = "principal"

// Credential headers, one per channel.
const (
	HeaderDoctorToken  = "dtoken"
	HeaderPatientToken = "token"
	HeaderAdminToken   = "atoken"
)

type profileResolver interface {
	ResolveProfilePrincipal(doctorToken, patientToken string) (*models.Principal, error)
}

type adminResolver interface {
	ResolveAdminPrincipal(adminToken string) (*models.Principal, error)
}

// ProfileAuth resolves a doctor or patient principal from the dtoken and
// token headers.
func ProfileAuth(auth profileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.ResolveProfilePrincipal(
			strings.TrimSpace(c.GetHeader(HeaderDoctorToken)),
			strings.TrimSpace(c.GetHeader(HeaderPatientToken)),
		)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !setPrincipal(c, principal) {
			return
		}
		c.Next()
	}
}

// AdminAuth resolves the admin principal from the atoken header.
func AdminAuth(auth adminResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.ResolveAdminPrincipal(strings.TrimSpace(c.GetHeader(HeaderAdminToken)))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !setPrincipal(c, principal) {
			return
		}
		c.Next()
	}
}

// PrincipalFromContext returns the principal set by ProfileAuth or AdminAuth.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}

func setPrincipal(c *gin.Context, p *models.Principal) bool {
	if p == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return false
	}
	c.Set(ContextPrincipalKey, p)
	c.Set(logger.PrincipalRoleKey, string(p.Role))
	return true
}
