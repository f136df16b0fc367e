package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/canopyhq/canopy/internal/auth"
	"github.com/canopyhq/canopy/internal/content"
	"github.com/canopyhq/canopy/internal/handlers"
	"github.com/canopyhq/canopy/internal/middleware"
	"github.com/canopyhq/canopy/internal/services"
)

// Options carries everything the router needs beyond the database handle.
type Options struct {
	JWT          *iauth.JWTService
	Sessions     *iauth.SessionService
	Store        *content.Store
	Sync         *content.SyncService
	Hybrid       *content.HybridService
	Files        *content.PageFiles
	Pages        *services.PageService
	Jobs         *services.JobService
	Applications *services.ApplicationService
	Leave        *services.LeaveService
	Contact      *services.ContactService

	RateStore       middleware.RateStore
	RateLimitMax    int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	MetricsEnabled  bool
	MetricsEndpoint string
	HealthEnabled   bool
	TrustedPlatform string
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, opts Options) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if opts.JWT == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("auth services must be provided")
	}
	if opts.Store == nil || opts.Sync == nil || opts.Hybrid == nil || opts.Files == nil {
		return nil, fmt.Errorf("content services must be provided")
	}
	if opts.Pages == nil || opts.Jobs == nil || opts.Applications == nil || opts.Leave == nil || opts.Contact == nil {
		return nil, fmt.Errorf("domain services must be provided")
	}

	r := gin.New()
	if opts.TrustedPlatform != "" {
		r.TrustedPlatform = opts.TrustedPlatform
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(opts.AllowedOrigins))
	r.Use(middleware.RateLimit(opts.RateStore, opts.RateLimitMax, opts.RateLimitWindow))

	r.NoRoute(middleware.NotFoundHandler)

	if opts.HealthEnabled {
		r.GET("/health", handlers.Health())
	}
	if opts.MetricsEnabled {
		endpoint := opts.MetricsEndpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(db, opts.Sessions)
	contentHandler := handlers.NewContentHandler(opts.Store, opts.Sync)
	syncHandler := handlers.NewSyncHandler(opts.Sync, opts.Hybrid)
	pageHandler := handlers.NewPageHandler(opts.Pages, opts.Hybrid, opts.Files)
	jobHandler := handlers.NewJobHandler(opts.Jobs, opts.Applications)
	applicationHandler := handlers.NewApplicationHandler(opts.Applications)
	leaveHandler := handlers.NewLeaveHandler(opts.Leave)
	contactHandler := handlers.NewContactHandler(opts.Contact)
	cacheHandler := handlers.NewCacheHandler(opts.Hybrid)

	// Public routes consumed by the marketing site
	public := r.Group("/api")
	{
		public.GET("/content", contentHandler.Get)
		public.GET("/content/departments", contentHandler.Departments)
		public.GET("/content/options", contentHandler.Options)
		public.GET("/pages/:id", pageHandler.GetPublic)
		public.GET("/json-pages/:id", pageHandler.GetJSONFile)
		public.GET("/jobs", jobHandler.ListPublic)
		public.GET("/jobs/:slug", jobHandler.GetPublic)
		public.POST("/jobs/:slug/apply", jobHandler.Apply)
		public.POST("/contact", contactHandler.Submit)
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/refresh", authHandler.Refresh)
	}

	// Back-office routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.Auth(opts.JWT))
	{
		admin.GET("/auth/me", authHandler.Me)
		admin.POST("/auth/logout", authHandler.Logout)

		admin.PUT("/content", contentHandler.Update)
		admin.PATCH("/content", contentHandler.Update)

		admin.POST("/sync", syncHandler.Run)
		admin.GET("/sync/validate", syncHandler.Validate)

		pages := admin.Group("/pages")
		{
			pages.GET("", pageHandler.List)
			pages.GET("/:id", pageHandler.Get)
			pages.POST("", pageHandler.Create)
			pages.PUT("/:id", pageHandler.Update)
			pages.PATCH("/:id/content", pageHandler.PatchContent)
			pages.DELETE("/:id", pageHandler.Delete)
			pages.GET("/:id/revisions", pageHandler.Revisions)
		}

		jobs := admin.Group("/jobs")
		{
			jobs.GET("", jobHandler.List)
			jobs.GET("/:id", jobHandler.Get)
			jobs.POST("", jobHandler.Create)
			jobs.PUT("/:id", jobHandler.Update)
			jobs.DELETE("/:id", jobHandler.Delete)
		}

		applications := admin.Group("/applications")
		{
			applications.GET("", applicationHandler.List)
			applications.GET("/:id", applicationHandler.Get)
			applications.PATCH("/:id/status", applicationHandler.UpdateStatus)
			applications.DELETE("/:id", applicationHandler.Delete)
		}

		leave := admin.Group("/leave")
		{
			leave.GET("", leaveHandler.List)
			leave.GET("/:id", leaveHandler.Get)
			leave.POST("", leaveHandler.Create)
			leave.POST("/import", leaveHandler.Import)
			leave.PUT("/:id", leaveHandler.Update)
			leave.PATCH("/:id/status", leaveHandler.SetStatus)
			leave.DELETE("/:id", leaveHandler.Delete)
		}

		contact := admin.Group("/contact")
		{
			contact.GET("", contactHandler.List)
			contact.GET("/:id", contactHandler.Get)
			contact.PATCH("/:id/read", contactHandler.MarkRead)
			contact.DELETE("/:id", contactHandler.Delete)
		}

		cacheRoutes := admin.Group("/cache")
		{
			cacheRoutes.GET("/stats", cacheHandler.Stats)
			cacheRoutes.POST("/clear", cacheHandler.Clear)
			cacheRoutes.POST("/invalidate-pages", cacheHandler.InvalidatePages)
		}
	}

	return r, nil
}
