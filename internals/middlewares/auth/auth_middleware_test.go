package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	sessionService "loginuv_backend/internals/features/sessions/session/service"
	userModel "loginuv_backend/internals/features/users/account/model"
	helpersAuth "loginuv_backend/internals/helpers/auth"
)

type stubParser struct{}

func (stubParser) Parse(raw string) (*helpersAuth.SessionClaims, error) {
	if raw != "good" && raw != "closed" {
		return nil, helpersAuth.ErrInvalidToken
	}
	claims := &helpersAuth.SessionClaims{SessionID: 7}
	claims.Subject = raw
	return claims, nil
}

type stubSessions struct{}

func (stubSessions) ActiveUser(ctx context.Context, sessionID int64, userCode string) (*userModel.UserModel, error) {
	switch userCode {
	case "good":
		return &userModel.UserModel{ID: 1, Code: "admin", Role: "admin"}, nil
	case "closed":
		return nil, sessionService.ErrSessionNotActive
	}
	return nil, errors.New("db down")
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin",
		AuthMiddleware(stubParser{}, stubSessions{}, zap.NewNop()),
		OnlyRolesSlice("admins only", []string{"admin"}),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"code": c.Locals(LocUserCode), "session": c.Locals(LocSessionID)})
		},
	)
	app.Get("/teacher",
		AuthMiddleware(stubParser{}, stubSessions{}, zap.NewNop()),
		OnlyRolesSlice("teachers only", []string{"teacher"}),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) },
	)
	return app
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()
	cases := []struct {
		path   string
		header string
		want   int
	}{
		{"/admin", "", fiber.StatusUnauthorized},
		{"/admin", "Basic abc", fiber.StatusUnauthorized},
		{"/admin", "Bearer nope", fiber.StatusUnauthorized},
		{"/admin", "Bearer closed", fiber.StatusUnauthorized},
		{"/admin", "bearer   good", fiber.StatusOK},
		{"/teacher", "Bearer good", fiber.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s %q: %v", tc.path, tc.header, err)
		}
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %q: expected %d, got %d", tc.path, tc.header, tc.want, resp.StatusCode)
		}
	}
}
