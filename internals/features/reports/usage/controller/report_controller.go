// file: internals/features/reports/usage/controller/report_controller.go
package controller

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/reports/usage/dto"
	"loginuv_backend/internals/features/reports/usage/service"
	helper "loginuv_backend/internals/helpers"
)

type ReportController struct {
	Svc      *service.ReportService
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewReportController(svc *service.ReportService, v *validator.Validate, log *zap.Logger) *ReportController {
	return &ReportController{Svc: svc, Validate: v, Log: log.Named("report_controller")}
}

func formatNotImplemented(c *fiber.Ctx, format string) error {
	return helper.JsonErrorCode(c, fiber.StatusNotImplemented, constants.CodeFormatNotImplemented,
		"Format laporan belum didukung: "+format)
}

// GET /api/v1/reports/usage?from=&to=&campus=&lab=&user_code=&plan=&semester=&format=
func (ctl *ReportController) Usage(c *fiber.Ctx) error {
	var q dto.UsageQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Query tidak valid")
	}
	if err := ctl.Validate.Struct(&q); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}
	if !dto.WantsJSON(q.Format) {
		return formatNotImplemented(c, q.Format)
	}

	rep, err := ctl.Svc.Usage(c.UserContext(), q.ToFilter())
	if err != nil {
		ctl.Log.Error("laporan usage gagal", zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
	}
	return helper.JsonOK(c, "ok", rep)
}

// GET /api/v1/reports/attendance?from=&to=&plan=&semester=&user_code=&format=
func (ctl *ReportController) Attendance(c *fiber.Ctx) error {
	var q dto.AttendanceQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Query tidak valid")
	}
	if err := ctl.Validate.Struct(&q); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}
	if !dto.WantsJSON(q.Format) {
		return formatNotImplemented(c, q.Format)
	}

	rep, err := ctl.Svc.Attendance(c.UserContext(), q.ToFilter())
	if err != nil {
		ctl.Log.Error("laporan kehadiran gagal", zap.Error(err))
		return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
	}
	return helper.JsonOK(c, "ok", rep)
}
