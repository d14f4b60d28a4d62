// file: internals/features/users/csvimport/route/import_route.go
package route

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/users/csvimport/controller"
	"loginuv_backend/internals/features/users/csvimport/service"
)

// CSVImportAdminRoutes expects admin to already carry the auth + role middlewares.
func CSVImportAdminRoutes(admin fiber.Router, svc *service.ImportService, v *validator.Validate, log *zap.Logger) {
	ctl := controller.NewImportController(svc, v, log)

	g := admin.Group("/users/import-csv")
	g.Post("/", ctl.Import)
	g.Get("/", ctl.List)
	g.Get("/:id", ctl.Detail)
	g.Get("/:id/errors.csv", ctl.DownloadErrors)
}
