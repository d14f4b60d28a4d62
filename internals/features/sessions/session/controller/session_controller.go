// file: internals/features/sessions/session/controller/session_controller.go
package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/sessions/session/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	"loginuv_backend/internals/features/sessions/session/service"
	helper "loginuv_backend/internals/helpers"
)

type SessionController struct {
	Svc      *service.AdmissionService
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewSessionController(svc *service.AdmissionService, v *validator.Validate, log *zap.Logger) *SessionController {
	return &SessionController{Svc: svc, Validate: v, Log: log.Named("session_controller")}
}

// POST /api/v1/auth/login
func (ctl *SessionController) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	req.Normalize()
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	res, err := ctl.Svc.Login(c.UserContext(), req)
	if err != nil {
		return ctl.admissionError(c, err)
	}
	return helper.JsonOK(c, "login ok", res)
}

// POST /api/v1/auth/logout
func (ctl *SessionController) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	if err := ctl.Svc.Logout(c.UserContext(), req.SessionID, sessionModel.CloseReason(req.Reason)); err != nil {
		return ctl.admissionError(c, err)
	}
	return helper.NoContent(c)
}

// POST /api/v1/client/heartbeat
func (ctl *SessionController) Heartbeat(c *fiber.Ctx) error {
	var req dto.HeartbeatRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	if err := ctl.Svc.Heartbeat(c.UserContext(), req); err != nil {
		return ctl.admissionError(c, err)
	}
	return helper.JsonAccepted(c, "heartbeat diterima", nil)
}

// POST /api/v1/client/events/bulk
func (ctl *SessionController) BulkEvents(c *fiber.Ctx) error {
	var req dto.BulkEventsRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
	}
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	stored, err := ctl.Svc.IngestEvents(c.UserContext(), req)
	if err != nil {
		return ctl.admissionError(c, err)
	}
	return helper.JsonAccepted(c, "event diterima", fiber.Map{
		"received": len(req.Events),
		"stored":   stored,
	})
}

func (ctl *SessionController) admissionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return helper.JsonErrorCode(c, fiber.StatusUnauthorized, constants.CodeInvalidCredentials, "Kode atau password salah")
	case errors.Is(err, service.ErrMachineNotRegistered):
		return helper.JsonErrorCode(c, fiber.StatusNotFound, constants.CodeMachineNotRegistered, "Mesin tidak terdaftar di lab ini")
	case errors.Is(err, service.ErrSessionLimitReached):
		return helper.JsonErrorCode(c, fiber.StatusConflict, constants.CodeSessionLimitReached, "Batas sesi aktif tercapai")
	}
	ctl.Log.Error("request gagal", zap.String("path", c.Path()), zap.Error(err))
	return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
}
