// file: internals/features/dashboard/summary/route/dashboard_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/dashboard/summary/controller"
	"loginuv_backend/internals/features/dashboard/summary/service"
)

func DashboardAdminRoutes(admin fiber.Router, svc *service.DashboardService, log *zap.Logger) {
	ctl := controller.NewDashboardController(svc, log)

	d := admin.Group("/dashboard")
	d.Get("/summary", ctl.Summary)
	d.Get("/labs/:campus_code/:lab_code", ctl.LabStatus)
}
