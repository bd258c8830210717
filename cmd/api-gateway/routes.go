package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/clinic-api/api/swagger"
	"github.com/noah-isme/clinic-api/internal/handler"
	"github.com/noah-isme/clinic-api/internal/middleware"
	"github.com/noah-isme/clinic-api/internal/models"
	"github.com/noah-isme/clinic-api/pkg/config"
	"github.com/noah-isme/clinic-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clinic-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clinic-api/pkg/middleware/requestid"
)

type principalResolver interface {
	ResolveProfilePrincipal(doctorToken, patientToken string) (*models.Principal, error)
	ResolveAdminPrincipal(adminToken string) (*models.Principal, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type httpObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

type routeDeps struct {
	auth    principalResolver
	metrics httpObserver
	audit   auditWriter

	authHandler  *handler.AuthHandler
	reports      *handler.ReportHandler
	appointments *handler.AppointmentHandler
	profiles     *handler.ProfileHandler
	admin        *handler.AdminHandler
	ops          *handler.MetricsHandler
	uploadsDir   string
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	if deps.metrics != nil {
		r.Use(middleware.Metrics(deps.metrics))
	}

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if deps.uploadsDir != "" {
		r.Static("/uploads", deps.uploadsDir)
	}

	profileAuth := middleware.ProfileAuth(deps.auth)
	adminAuth := middleware.AdminAuth(deps.auth)
	doctorOnly := middleware.RequireRoles(models.RoleDoctor)
	patientOnly := middleware.RequireRoles(models.RolePatient)

	api := r.Group(cfg.APIPrefix)
	api.GET("/doctors", deps.admin.PublicDoctors)

	user := api.Group("/user")
	user.POST("/register", deps.authHandler.Register)
	user.POST("/login", deps.authHandler.LoginPatient)
	userAuthed := user.Group("", middleware.AuditDenied(deps.audit, "user", logr), profileAuth, patientOnly)
	userAuthed.GET("/get-profile", deps.profiles.Get)
	userAuthed.POST("/update-profile", deps.profiles.Update)
	userAuthed.POST("/book-appointment", deps.appointments.Book)
	userAuthed.GET("/appointments", deps.appointments.ListMine)
	userAuthed.POST("/cancel-appointment", deps.appointments.Cancel)

	doctor := api.Group("/doctor")
	doctor.POST("/login", deps.authHandler.LoginDoctor)
	doctorAuthed := doctor.Group("", middleware.AuditDenied(deps.audit, "doctor", logr), profileAuth, doctorOnly)
	doctorAuthed.GET("/appointments", deps.appointments.ListForDoctor)
	doctorAuthed.POST("/cancel-appointment", deps.appointments.Cancel)
	doctorAuthed.POST("/complete-appointment", deps.appointments.Complete)
	doctorAuthed.GET("/dashboard", deps.appointments.DoctorDashboard)
	doctorAuthed.GET("/profile", deps.profiles.Get)
	doctorAuthed.POST("/update-profile", deps.profiles.Update)

	profile := api.Group("/profile", middleware.AuditDenied(deps.audit, "profile", logr), profileAuth)
	profile.GET("", deps.profiles.Get)
	profile.PUT("", deps.profiles.Update)

	reports := api.Group("/reports", middleware.AuditDenied(deps.audit, "report", logr), profileAuth)
	reports.POST("", deps.reports.Create)
	reports.GET("/editing", doctorOnly, deps.reports.Editing)
	reports.GET("/patient/:patientId", deps.reports.ListForPatient)
	reports.GET("/:id", deps.reports.Get)
	reports.PUT("/:id", deps.reports.Update)
	reports.GET("/:id/pdf", deps.reports.PDF)

	admin := api.Group("/admin")
	admin.POST("/login", deps.authHandler.LoginAdmin)
	adminAuthed := admin.Group("", middleware.AuditDenied(deps.audit, "admin", logr), adminAuth)
	adminAuthed.GET("/dashboard", deps.admin.Dashboard)
	adminAuthed.POST("/add-doctor", deps.admin.AddDoctor)
	adminAuthed.POST("/change-availability", deps.admin.ChangeAvailability)
	adminAuthed.GET("/all-doctors", deps.admin.ListDoctors)
	adminAuthed.GET("/users", deps.admin.ListUsers)
	adminAuthed.DELETE("/users/:id", deps.admin.DeleteUser)
	adminAuthed.DELETE("/doctor/:id", deps.admin.DeleteDoctor)
	adminAuthed.GET("/appointments", deps.appointments.ListAll)
	adminAuthed.POST("/cancel-appointment", deps.appointments.Cancel)
	adminAuthed.GET("/reports", deps.reports.AdminList)
	adminAuthed.GET("/reports/export", deps.reports.Export)
	adminAuthed.GET("/reports/:id", deps.reports.Get)

	return r
}
