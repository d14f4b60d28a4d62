// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	sessionService "loginuv_backend/internals/features/sessions/session/service"
	userModel "loginuv_backend/internals/features/users/account/model"
	helper "loginuv_backend/internals/helpers"
	helpersAuth "loginuv_backend/internals/helpers/auth"
)

const (
	LocUserID    = "user_id"
	LocUserCode  = "user_code"
	LocUserRole  = "userRole"
	LocSessionID = "session_id"
)

type TokenParser interface {
	Parse(raw string) (*helpersAuth.SessionClaims, error)
}

type SessionResolver interface {
	ActiveUser(ctx context.Context, sessionID int64, userCode string) (*userModel.UserModel, error)
}

// AuthMiddleware accepts a bearer token only while the lab session it names is still active.
func AuthMiddleware(tokens TokenParser, sessions SessionResolver, log *zap.Logger) fiber.Handler {
	log = log.Named("auth")
	return func(c *fiber.Ctx) error {
		raw, err := extractBearerToken(c)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Unauthorized - Token invalid or expired")
		}

		user, err := sessions.ActiveUser(c.UserContext(), claims.SessionID, claims.Subject)
		if err != nil {
			if errors.Is(err, sessionService.ErrSessionNotActive) {
				return helper.JsonError(c, fiber.StatusUnauthorized, "Unauthorized - Session closed")
			}
			log.Error("gagal resolve sesi", zap.Int64("session_id", claims.SessionID), zap.Error(err))
			return helper.JsonError(c, fiber.StatusInternalServerError, "Internal Server Error")
		}

		storeClaimsToLocals(c, user, claims.SessionID)
		return c.Next()
	}
}
