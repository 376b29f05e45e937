package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/api"
	"github.com/trustweave/portal/internal/app"
	"github.com/trustweave/portal/internal/app/maintenance"
	iauth "github.com/trustweave/portal/internal/auth"
	"github.com/trustweave/portal/internal/dashboard"
	"github.com/trustweave/portal/internal/database"
	"github.com/trustweave/portal/internal/ledger"
	"github.com/trustweave/portal/internal/realtime"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/internal/storage"
	"github.com/trustweave/portal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trustweave-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: cfg.Auth.Session.RefreshTTL,
		RefreshLength:   cfg.Auth.Session.RefreshLength,
	})
	if err != nil {
		return fmt.Errorf("initialise session service: %w", err)
	}

	localAuth, err := iauth.NewLocalProvider(db, iauth.LocalConfig{
		LockoutThreshold: cfg.Auth.Local.LockoutThreshold,
		LockoutDuration:  cfg.Auth.Local.LockoutDuration,
	})
	if err != nil {
		return fmt.Errorf("initialise local auth: %w", err)
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}

	hub := realtime.NewHub()

	recordSvc, err := services.NewRecordService(db, auditSvc, hub)
	if err != nil {
		return fmt.Errorf("initialise record service: %w", err)
	}

	anchor := ledger.NewSimulated(ledger.SimulatedConfig{
		SubmitDelay:  cfg.Ledger.SubmitDelay,
		VerifyDelay:  cfg.Ledger.VerifyDelay,
		StatusDelay:  cfg.Ledger.StatusDelay,
		ValidityRate: cfg.Ledger.ValidityRate,
		Issuer:       cfg.Ledger.Issuer,
	}, recordSvc)

	docStore, err := storage.NewLocalStore(cfg.Storage.Root, cfg.Storage.MaxUploadBytes, cfg.Storage.AllowedTypes)
	if err != nil {
		return fmt.Errorf("initialise document store: %w", err)
	}

	wizardSvc, err := services.NewWizardService(db, recordSvc, docStore, anchor)
	if err != nil {
		return fmt.Errorf("initialise wizard service: %w", err)
	}

	reconciler, err := dashboard.NewReconciler(recordSvc, cfg.Dashboard.RefreshInterval)
	if err != nil {
		return fmt.Errorf("initialise dashboard reconciler: %w", err)
	}
	go reconciler.Run(ctx)

	cleaner := maintenance.NewCleaner(sessionSvc, auditSvc, wizardSvc,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithDraftTTL(cfg.Maintenance.DraftTTL),
	)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Deps{
		DB:         db,
		Config:     cfg,
		JWT:        jwtSvc,
		Sessions:   sessionSvc,
		Local:      localAuth,
		Records:    recordSvc,
		Wizards:    wizardSvc,
		Audit:      auditSvc,
		Anchor:     anchor,
		Reconciler: reconciler,
		Hub:        hub,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seed := database.SeedConfig{
		AdminEmail:    cfg.Auth.Admin.Email,
		AdminPassword: cfg.Auth.Admin.Password,
		AdminName:     cfg.Auth.Admin.Name,
	}
	if err := database.AutoMigrateAndSeed(db, seed); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
