// file: internals/features/dashboard/summary/controller/dashboard_controller.go
package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/dashboard/summary/service"
	helper "loginuv_backend/internals/helpers"
)

type DashboardController struct {
	Svc *service.DashboardService
	Log *zap.Logger
}

func NewDashboardController(svc *service.DashboardService, log *zap.Logger) *DashboardController {
	return &DashboardController{Svc: svc, Log: log.Named("dashboard_controller")}
}

// GET /api/v1/dashboard/summary?campus=
func (ctl *DashboardController) Summary(c *fiber.Ctx) error {
	res, err := ctl.Svc.Summary(c.UserContext(), strings.TrimSpace(c.Query("campus")))
	if err != nil {
		ctl.Log.Error("summary gagal", zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
	}
	return helper.JsonOK(c, "ok", res)
}

// GET /api/v1/dashboard/labs/:campus_code/:lab_code
func (ctl *DashboardController) LabStatus(c *fiber.Ctx) error {
	res, err := ctl.Svc.LabStatus(c.UserContext(), c.Params("campus_code"), c.Params("lab_code"))
	switch {
	case errors.Is(err, service.ErrLabNotFound):
		return helper.JsonErrorCode(c, fiber.StatusNotFound, constants.CodeLabNotFound, "Lab tidak ditemukan")
	case err != nil:
		ctl.Log.Error("status lab gagal", zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
	}
	return helper.JsonOK(c, "ok", res)
}
