package helper

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// FiberErrorHandler turns errors that escape a handler into the standard JSON shape.
// *fiber.Error keeps its code and message, anything else becomes a generic 500.
func FiberErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return JsonError(c, fe.Code, fe.Message)
		}
		log.Error("error tidak tertangani",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
	}
}
