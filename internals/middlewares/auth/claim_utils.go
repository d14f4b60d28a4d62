// internals/middlewares/auth/claims_utils.go
package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	userModel "loginuv_backend/internals/features/users/account/model"
)

func extractBearerToken(c *fiber.Ctx) (string, error) {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if auth == "" {
		return "", fmt.Errorf("unauthorized - No token provided")
	}

	// toleransi spasi ganda & case-insensitive
	fields := strings.Fields(auth)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", fmt.Errorf("unauthorized - Invalid token format")
	}

	tok := strings.Trim(strings.TrimSpace(fields[1]), "\"'")
	if tok == "" {
		return "", fmt.Errorf("unauthorized - Empty token")
	}
	return tok, nil
}

func storeClaimsToLocals(c *fiber.Ctx, user *userModel.UserModel, sessionID int64) {
	c.Locals(LocUserID, user.ID)
	c.Locals(LocUserCode, user.Code)
	c.Locals(LocUserRole, user.Role)
	c.Locals(LocSessionID, sessionID)
}
