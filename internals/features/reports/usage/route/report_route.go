// file: internals/features/reports/usage/route/report_route.go
package route

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/reports/usage/controller"
	"loginuv_backend/internals/features/reports/usage/service"
)

// ReportAdminRoutes expects admin to already carry the auth + role middlewares.
func ReportAdminRoutes(admin fiber.Router, svc *service.ReportService, v *validator.Validate, log *zap.Logger) {
	ctl := controller.NewReportController(svc, v, log)

	g := admin.Group("/reports")
	g.Get("/usage", ctl.Usage)
	g.Get("/attendance", ctl.Attendance)
}
