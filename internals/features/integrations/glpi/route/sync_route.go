// file: internals/features/integrations/glpi/route/sync_route.go
package route

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/integrations/glpi/controller"
	"loginuv_backend/internals/features/integrations/glpi/service"
)

// GLPIAdminRoutes expects admin to already carry the auth + role middlewares.
func GLPIAdminRoutes(admin fiber.Router, svc *service.SyncService, v *validator.Validate, log *zap.Logger) {
	ctl := controller.NewSyncController(svc, v, log)

	g := admin.Group("/integrations/glpi")
	g.Post("/sync", ctl.Start)
	g.Get("/sync", ctl.List)
	g.Get("/sync/:id", ctl.Detail)
}
