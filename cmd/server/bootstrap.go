package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/api"
	"github.com/canopyhq/canopy/internal/app"
	"github.com/canopyhq/canopy/internal/app/maintenance"
	iauth "github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/cache"
	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/middleware"
	"github.com/canopyhq/canopy/internal/models"
	"github.com/canopyhq/canopy/internal/services"
	"github.com/canopyhq/canopy/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Memory  *cache.Memory
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	stack.Memory = cache.NewMemory(cfg.Content.CacheTTLOrDefault())

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(stack.DB, jwtSvc, cfg.Auth.SessionServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	storeCfg, err := cfg.Content.StoreConfig()
	if err != nil {
		return nil, err
	}

	store, err := content.NewStore(stack.DB, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise content store: %w", err)
	}
	log.Info("content storage resolved", zap.String("mode", string(store.Mode())))

	files, err := content.NewPageFiles(cfg.Content.PagesDir)
	if err != nil {
		return nil, fmt.Errorf("initialise page files: %w", err)
	}

	syncSvc, err := content.NewSyncService(stack.DB, store, files)
	if err != nil {
		return nil, fmt.Errorf("initialise sync service: %w", err)
	}

	hybridSvc, err := content.NewHybridService(stack.DB, stack.Memory, files)
	if err != nil {
		return nil, fmt.Errorf("initialise hybrid service: %w", err)
	}

	pageSvc, err := services.NewPageService(stack.DB, syncSvc, hybridSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise page service: %w", err)
	}

	jobSvc, err := services.NewJobService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise job service: %w", err)
	}

	applicationSvc, err := services.NewApplicationService(stack.DB, jobSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise application service: %w", err)
	}

	leaveSvc, err := services.NewLeaveService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise leave service: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Email.SMTP.Enabled {
		mailer, err = mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			log.Warn("smtp disabled due to invalid configuration", zap.Error(err))
			mailer = nil
		}
	}

	contactSvc, err := services.NewContactService(stack.DB, mailer, cfg.Email.Notify)
	if err != nil {
		return nil, fmt.Errorf("initialise contact service: %w", err)
	}

	if err := ensureAdminAccount(ctx, stack.DB, cfg.Auth.Admin, log); err != nil {
		return nil, err
	}

	if cfg.Sync.OnStart {
		direction, dirErr := content.ParseDirection(cfg.Sync.Direction)
		if dirErr != nil {
			return nil, dirErr
		}
		if _, syncErr := syncSvc.Run(ctx, direction, true); syncErr != nil {
			log.Warn("startup sync failed", zap.Error(syncErr))
		}
	}

	cleanerOpts := []maintenance.Option{}
	if cfg.Sync.Schedule != "" {
		direction, dirErr := content.ParseDirection(cfg.Sync.Direction)
		if dirErr != nil {
			return nil, dirErr
		}
		cleanerOpts = append(cleanerOpts, maintenance.WithScheduledSync(cfg.Sync.Schedule, direction))
	}

	stack.Cleaner = maintenance.NewCleaner(stack.DB, sessionSvc, stack.Memory, syncSvc, hybridSvc, cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, api.Options{
		JWT:             jwtSvc,
		Sessions:        sessionSvc,
		Store:           store,
		Sync:            syncSvc,
		Hybrid:          hybridSvc,
		Files:           files,
		Pages:           pageSvc,
		Jobs:            jobSvc,
		Applications:    applicationSvc,
		Leave:           leaveSvc,
		Contact:         contactSvc,
		RateStore:       middleware.NewDatabaseRateStore(dbStore),
		RateLimitMax:    cfg.Server.RateLimit.Requests,
		RateLimitWindow: cfg.Server.RateLimit.Window,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MetricsEnabled:  cfg.Monitoring.Prometheus.Enabled,
		MetricsEndpoint: cfg.Monitoring.Prometheus.Endpoint,
		HealthEnabled:   cfg.Monitoring.Health.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases the stack's resources in reverse dependency order.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
		s.DB = nil
	}
}

// ensureAdminAccount creates the first back-office user from configuration when
// the user table is empty. Without credentials configured, the API still serves
// public routes but no one can log in.
func ensureAdminAccount(ctx context.Context, db *gorm.DB, admin app.AdminSettings, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	username := strings.TrimSpace(admin.Username)
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	password := admin.Password

	if username == "" || email == "" || password == "" {
		log.Warn("no admin account configured; back-office login unavailable")
		return nil
	}

	hash, err := iauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hash,
		IsAdmin:  true,
		IsActive: true,
	}

	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create admin account: %w", err)
	}

	log.Info("admin account created", zap.String("username", username))
	return nil
}
