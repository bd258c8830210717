package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-api/internal/handler"
	"github.com/noah-isme/clinic-api/internal/repository"
	"github.com/noah-isme/clinic-api/internal/service"
	"github.com/noah-isme/clinic-api/pkg/cache"
	"github.com/noah-isme/clinic-api/pkg/config"
	"github.com/noah-isme/clinic-api/pkg/database"
	"github.com/noah-isme/clinic-api/pkg/logger"
	"github.com/noah-isme/clinic-api/pkg/storage"
)

// @title Clinic API
// @version 1.0.0
// @description Appointments, versioned medical reports and clinic administration.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey DoctorToken
// @in header
// @name dtoken
// @securityDefinitions.apikey PatientToken
// @in header
// @name token
// @securityDefinitions.apikey AdminToken
// @in header
// @name atoken

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	uploader, localStore, err := newUploader(cfg, logr)
	if err != nil {
		logr.Fatal("failed to init upload storage", zap.Error(err))
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	patientRepo := repository.NewPatientRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authService := service.NewAuthService(patientRepo, doctorRepo, validate, logr, service.AuthConfig{
		Secret:                cfg.JWT.Secret,
		Expiry:                cfg.JWT.Expiration,
		Issuer:                cfg.JWT.Issuer,
		AdminEmail:            cfg.Admin.Email,
		AdminPassword:         cfg.Admin.Password,
		AdminExpiry:           cfg.Admin.TokenExpiration,
		RejectDualCredentials: cfg.JWT.RejectDualCredentials,
	})
	reportService := service.NewReportService(reportRepo, appointmentRepo, patientRepo, doctorRepo, auditRepo, metrics, service.ReportExporters{}, validate, logr)
	editingService := service.NewReportEditingService(reportRepo, appointmentRepo, patientRepo, doctorRepo, logr)
	appointmentService := service.NewAppointmentService(appointmentRepo, patientRepo, doctorRepo, auditRepo, metrics, validate, logr)
	profileService := service.NewProfileService(patientRepo, doctorRepo, uploader, cfg.Upload.MaxBytes, auditRepo, logr)
	adminService := service.NewAdminService(doctorRepo, patientRepo, appointmentRepo, uploader, cfg.Upload.MaxBytes, auditRepo, validate, logr)
	if redisClient != nil {
		directoryCache := service.NewCacheService(repository.NewCacheRepository(redisClient, "clinic:cache:"), metrics, cfg.Redis.CacheTTL, logr)
		adminService.WithCache(directoryCache)
		appointmentService.WithCache(directoryCache)
	}

	router := newRouter(cfg, logr, routeDeps{
		auth:         authService,
		metrics:      metrics,
		audit:        auditRepo,
		authHandler:  handler.NewAuthHandler(authService),
		reports:      handler.NewReportHandler(reportService, editingService),
		appointments: handler.NewAppointmentHandler(appointmentService),
		profiles:     handler.NewProfileHandler(profileService),
		admin:        handler.NewAdminHandler(adminService),
		ops:          handler.NewMetricsHandler(metrics, db),
		uploadsDir:   localDir(localStore),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Reconcile.Enabled {
		var lock service.SweepLock
		if redisClient != nil {
			lock = repository.NewLockRepository(redisClient, "clinic:lock:")
		}
		reconciler := service.NewSlotReconciler(doctorRepo, appointmentRepo, lock, metrics, auditRepo, logr, service.ReconcilerConfig{
			Workers: cfg.Reconcile.Workers,
			LockTTL: cfg.Reconcile.LockTTL,
		})
		go reconciler.Start(ctx, cfg.Reconcile.Interval)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// newUploader selects the blob store. The local store is also returned so
// its directory can be served.
func newUploader(cfg *config.Config, logr *zap.Logger) (service.BlobUploader, *storage.LocalStorage, error) {
	switch cfg.Upload.Provider {
	case config.UploadProviderCloudinary:
		u, err := storage.NewCloudinaryUploader(cfg.Upload.Cloudinary, logr)
		if err != nil {
			return nil, nil, err
		}
		return u, nil, nil
	case "", config.UploadProviderLocal:
		local, err := storage.NewLocalStorage(cfg.Upload.LocalDir, cfg.Upload.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("unknown upload provider %q", cfg.Upload.Provider)
	}
}

func localDir(local *storage.LocalStorage) string {
	if local == nil {
		return ""
	}
	return local.Dir()
}
