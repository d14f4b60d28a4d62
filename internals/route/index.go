// file: internals/route/index.go
package routes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"loginuv_backend/internals/constants"
	dashboardRoute "loginuv_backend/internals/features/dashboard/summary/route"
	dashboardService "loginuv_backend/internals/features/dashboard/summary/service"
	glpiRoute "loginuv_backend/internals/features/integrations/glpi/route"
	glpiService "loginuv_backend/internals/features/integrations/glpi/service"
	reportRoute "loginuv_backend/internals/features/reports/usage/route"
	reportService "loginuv_backend/internals/features/reports/usage/service"
	sessionRoute "loginuv_backend/internals/features/sessions/session/route"
	sessionService "loginuv_backend/internals/features/sessions/session/service"
	userRoute "loginuv_backend/internals/features/users/account/route"
	userService "loginuv_backend/internals/features/users/account/service"
	csvRoute "loginuv_backend/internals/features/users/csvimport/route"
	csvService "loginuv_backend/internals/features/users/csvimport/service"
	middlewares "loginuv_backend/internals/middlewares"
	authMiddleware "loginuv_backend/internals/middlewares/auth"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Validate  *validator.Validate
	Tokens    authMiddleware.TokenParser
	Admission *sessionService.AdmissionService
	Users     *userService.UserService
	Sync      *glpiService.SyncService
	Dashboard *dashboardService.DashboardService
	Imports   *csvService.ImportService
	Reports   *reportService.ReportService
}

var startTime time.Time

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()
	log := d.Log.Named("routes")

	api := app.Group("/api/v1")

	log.Info("[INFO] Menyiapkan BaseRoutes...")
	BaseRoutes(app, api, d.DB)

	// ===================== LAB CLIENTS (no bearer) =====================
	log.Info("[INFO] Memasang route sesi...")
	sessionRoute.SessionRoutes(api, d.Admission, d.Validate, d.Log)

	// ===================== ADMIN =====================
	log.Info("[INFO] Menyiapkan grup ADMIN (Auth + RoleCheck)...")
	admin := api.Group("",
		middlewares.GlobalRateLimiter(),
		authMiddleware.AuthMiddleware(d.Tokens, d.Admission, d.Log),
		authMiddleware.OnlyRolesSlice(constants.RoleErrorAdmin("this endpoint"), constants.AdminOnly),
	)

	log.Info("[INFO] Memasang route admin...")
	userRoute.UserAdminRoutes(admin, d.Users, d.Validate, d.Log)
	csvRoute.CSVImportAdminRoutes(admin, d.Imports, d.Validate, d.Log)
	glpiRoute.GLPIAdminRoutes(admin, d.Sync, d.Validate, d.Log)
	dashboardRoute.DashboardAdminRoutes(admin, d.Dashboard, d.Log)
	reportRoute.ReportAdminRoutes(admin, d.Reports, d.Validate, d.Log)
}
