package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"loginuv_backend/internals/configs"
	database "loginuv_backend/internals/databases"
	dashboardService "loginuv_backend/internals/features/dashboard/summary/service"
	"loginuv_backend/internals/features/integrations/glpi/lock"
	glpiScheduler "loginuv_backend/internals/features/integrations/glpi/scheduler"
	glpiService "loginuv_backend/internals/features/integrations/glpi/service"
	occupancy "loginuv_backend/internals/features/machines/occupancy/service"
	reportService "loginuv_backend/internals/features/reports/usage/service"
	sessionScheduler "loginuv_backend/internals/features/sessions/session/scheduler"
	sessionService "loginuv_backend/internals/features/sessions/session/service"
	userService "loginuv_backend/internals/features/users/account/service"
	csvService "loginuv_backend/internals/features/users/csvimport/service"
	helper "loginuv_backend/internals/helpers"
	helpersAuth "loginuv_backend/internals/helpers/auth"
	middlewares "loginuv_backend/internals/middlewares"
	requestLogger "loginuv_backend/internals/middlewares/logger"
	routes "loginuv_backend/internals/route"
	"loginuv_backend/internals/seeds"
)

func main() {
	cfg, err := configs.LoadEnv()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logger, err := configs.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("❌ gagal membuat logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// berhenti saat SIGINT / SIGTERM; scheduler ikut berhenti lewat ctx ini
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 🔌 DB connect + pool + migrate + warm-up
	db, err := database.ConnectDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("koneksi database gagal", zap.Error(err))
	}
	if err := database.TunePool(db); err != nil {
		logger.Fatal("pool database gagal", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal("migrasi database gagal", zap.Error(err))
		}
	}
	database.WarmUp(db, logger)

	hasher := helpersAuth.NewPasswordHasher(bcrypt.DefaultCost)
	issuer := helpersAuth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	if cfg.SeedOnStart {
		if err := seeds.RunAllSeeds(ctx, db, hasher, cfg.SeedAdminPassword, logger); err != nil {
			logger.Fatal("seed gagal", zap.Error(err))
		}
	}

	// 🔒 sync lease: Redis kalau REDIS_ADDR diisi, selain itu in-process
	var lease lock.RunLock
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("koneksi redis gagal", zap.Error(err))
		}
		defer rdb.Close()
		leaseTTL := time.Hour
		if 2*cfg.GLPI.RunTimeout > leaseTTL {
			leaseTTL = 2 * cfg.GLPI.RunTimeout
		}
		lease = lock.NewRedisRunLock(rdb, leaseTTL)
		logger.Info("lease sync GLPI lewat Redis", zap.String("addr", cfg.Redis.Addr))
	}

	admission := sessionService.NewAdmissionService(db, hasher, issuer, occupancy.NewTracker(logger), logger)
	syncSvc := glpiService.NewSyncService(db, glpiService.ClientFactory(cfg.GLPI, logger), lease, hasher, cfg.GLPI.RunTimeout, logger)

	app := fiber.New(fiber.Config{
		// 🚀 JSON super cepat
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ProxyHeader:           fiber.HeaderXForwardedFor,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           90 * time.Second,
		ErrorHandler:          helper.FiberErrorHandler(logger),
	})

	app.Use(middlewares.RecoveryMiddleware(logger))
	app.Use(middlewares.RequestIDMiddleware())
	app.Use(requestLogger.LoggerMiddleware(logger))
	app.Use(middlewares.CorsMiddleware(cfg.CORSAllowOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))

	routes.SetupRoutes(app, routes.Deps{
		DB:        db,
		Log:       logger,
		Validate:  helper.NewValidator(),
		Tokens:    issuer,
		Admission: admission,
		Users:     userService.NewUserService(db, hasher, logger),
		Sync:      syncSvc,
		Dashboard: dashboardService.NewDashboardService(db, logger),
		Imports:   csvService.NewImportService(db, hasher, logger),
		Reports:   reportService.NewReportService(db, logger),
	})

	// ⏱ scheduler setelah DB siap
	sessionScheduler.StartTimeoutSweep(ctx, admission, cfg.Session.Timeout, cfg.Session.SweepInterval, logger)
	glpiScheduler.StartSyncScheduler(ctx, syncSvc, cfg.GLPI.SyncInterval, logger)

	go func() {
		logger.Info("✅ Server berjalan", zap.String("port", cfg.Port))
		if err := app.Listen("0.0.0.0:" + cfg.Port); err != nil {
			logger.Error("server gagal, berhenti", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("mematikan server...")

	// graceful shutdown + tutup pool DB
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
