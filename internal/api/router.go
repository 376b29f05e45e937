package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/app"
	iauth "github.com/trustweave/portal/internal/auth"
	"github.com/trustweave/portal/internal/dashboard"
	"github.com/trustweave/portal/internal/handlers"
	"github.com/trustweave/portal/internal/ledger"
	"github.com/trustweave/portal/internal/middleware"
	"github.com/trustweave/portal/internal/realtime"
	"github.com/trustweave/portal/internal/services"
)

// Deps bundles the constructed services the router mounts.
type Deps struct {
	DB         *gorm.DB
	Config     *app.Config
	JWT        *iauth.JWTService
	Sessions   *iauth.SessionService
	Local      *iauth.LocalProvider
	Records    *services.RecordService
	Wizards    *services.WizardService
	Audit      *services.AuditService
	Anchor     ledger.Ledger
	Reconciler *dashboard.Reconciler
	Hub        *realtime.Hub
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	switch {
	case deps.DB == nil:
		return nil, fmt.Errorf("database handle must be provided")
	case deps.Config == nil:
		return nil, fmt.Errorf("config must be provided")
	case deps.JWT == nil:
		return nil, fmt.Errorf("jwt service must be provided")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session service must be provided")
	case deps.Local == nil:
		return nil, fmt.Errorf("local auth provider must be provided")
	case deps.Records == nil, deps.Wizards == nil, deps.Audit == nil:
		return nil, fmt.Errorf("domain services must be provided")
	case deps.Anchor == nil:
		return nil, fmt.Errorf("ledger must be provided")
	case deps.Reconciler == nil:
		return nil, fmt.Errorf("dashboard reconciler must be provided")
	case deps.Hub == nil:
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	r := gin.New()
	r.MaxMultipartMemory = deps.Config.Storage.MaxUploadBytes

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(deps.DB))
	}
	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Local, deps.Sessions)
	wizardHandler := handlers.NewWizardHandler(deps.DB, deps.Wizards)
	recordHandler := handlers.NewRecordHandler(deps.Records, deps.Anchor)
	adminHandler := handlers.NewAdminHandler(deps.Records, deps.Audit, deps.Reconciler)
	realtimeHandler := handlers.NewRealtimeHandler(deps.DB, deps.Hub)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Public status lookup; the result is derived or already public knowledge
	// for the submitter who queries their own email.
	r.GET("/api/verification-status", recordHandler.VerificationStatus)

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	wizardRoutes := api.Group("/wizard")
	{
		wizardRoutes.GET("", wizardHandler.Draft)
		wizardRoutes.PUT("/personal-info", wizardHandler.SavePersonalInfo)
		wizardRoutes.POST("/documents/:type", wizardHandler.UploadDocument)
		wizardRoutes.POST("/advance", wizardHandler.Advance)
		wizardRoutes.POST("/back", wizardHandler.Back)
		wizardRoutes.POST("/submit", wizardHandler.Submit)
	}

	api.GET("/records/mine", recordHandler.Mine)
	api.POST("/ledger/verify", recordHandler.VerifyRecord)
	api.GET("/realtime", realtimeHandler.Serve)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin(deps.DB))
	{
		admin.GET("/records", adminHandler.Records)
		admin.POST("/records/refresh", adminHandler.Refresh)
		admin.GET("/records/:id", adminHandler.Record)
		admin.PATCH("/records/:id/status", adminHandler.UpdateStatus)
		admin.GET("/audit", adminHandler.Audit)
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
