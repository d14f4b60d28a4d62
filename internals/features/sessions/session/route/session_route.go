// file: internals/features/sessions/session/route/session_route.go
package route

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/features/sessions/session/controller"
	"loginuv_backend/internals/features/sessions/session/service"
	rateLimiter "loginuv_backend/internals/middlewares"
)

// SessionRoutes mounts the endpoints lab machines call. They carry no bearer token.
func SessionRoutes(api fiber.Router, svc *service.AdmissionService, v *validator.Validate, log *zap.Logger) {
	ctl := controller.NewSessionController(svc, v, log)

	auth := api.Group("/auth")
	auth.Post("/login", rateLimiter.LoginRateLimiter(), ctl.Login)
	auth.Post("/logout", ctl.Logout)

	client := api.Group("/client")
	client.Post("/heartbeat", ctl.Heartbeat)
	client.Post("/events/bulk", ctl.BulkEvents)
}
