// file: internals/features/users/account/controller/user_controller.go
package controller

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/users/account/dto"
	"loginuv_backend/internals/features/users/account/service"
	helper "loginuv_backend/internals/helpers"
)

type UserController struct {
	Svc      *service.UserService
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewUserController(svc *service.UserService, v *validator.Validate, log *zap.Logger) *UserController {
	return &UserController{Svc: svc, Validate: v, Log: log.Named("user_controller")}
}

// GET /api/v1/users?active=&page=&per_page=
func (ctl *UserController) List(c *fiber.Ctx) error {
	var q dto.ListUsersQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Query tidak valid")
	}
	paging := helper.ResolvePaging(c, 50, 500)

	rows, total, err := ctl.Svc.List(c.UserContext(), q.Active, paging)
	if err != nil {
		return ctl.userError(c, err)
	}
	pg := helper.BuildPagination(total, paging, len(rows))
	return helper.JsonList(c, "ok", dto.ToUserResponses(rows), &pg)
}

// POST /api/v1/users
func (ctl *UserController) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	user, err := ctl.Svc.Create(c.UserContext(), req)
	if err != nil {
		return ctl.userError(c, err)
	}
	return helper.JsonCreated(c, "user created", dto.ToUserResponse(*user))
}

// PATCH /api/v1/users/:id
func (ctl *UserController) Patch(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID tidak valid")
	}

	var req dto.PatchUserRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	user, err := ctl.Svc.Patch(c.UserContext(), id, req)
	if err != nil {
		return ctl.userError(c, err)
	}
	return helper.JsonUpdated(c, "user updated", dto.ToUserResponse(*user))
}

func (ctl *UserController) userError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserCodeTaken):
		return helper.JsonErrorCode(c, fiber.StatusConflict, constants.CodeUserCodeTaken, "Kode user sudah dipakai")
	case errors.Is(err, service.ErrInvalidMaxSessions):
		return helper.JsonErrorCode(c, fiber.StatusUnprocessableEntity, constants.CodeInvalidMaxSessions, "max_sessions minimal 1")
	case errors.Is(err, service.ErrUserNotFound):
		return helper.JsonErrorCode(c, fiber.StatusNotFound, constants.CodeUserNotFound, "User tidak ditemukan")
	}
	ctl.Log.Error("request gagal", zap.String("path", c.Path()), zap.Error(err))
	return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
}
