// file: internals/features/users/account/route/user_route.go
package route

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/users/account/controller"
	"loginuv_backend/internals/features/users/account/service"
)

// UserAdminRoutes expects admin to already carry the auth + role middlewares.
func UserAdminRoutes(admin fiber.Router, svc *service.UserService, v *validator.Validate, log *zap.Logger) {
	ctl := controller.NewUserController(svc, v, log)

	users := admin.Group("/users")
	users.Get("/", ctl.List)
	users.Post("/", ctl.Create)
	users.Patch("/:id", ctl.Patch)
}
