// file: internals/features/integrations/glpi/controller/sync_controller.go
package controller

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/integrations/glpi/dto"
	syncModel "loginuv_backend/internals/features/integrations/glpi/model"
	"loginuv_backend/internals/features/integrations/glpi/service"
	helper "loginuv_backend/internals/helpers"
)

const defaultRunListLimit = 20

type SyncController struct {
	Svc      *service.SyncService
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewSyncController(svc *service.SyncService, v *validator.Validate, log *zap.Logger) *SyncController {
	return &SyncController{Svc: svc, Validate: v, Log: log.Named("glpi_controller")}
}

// POST /api/v1/integrations/glpi/sync
func (ctl *SyncController) Start(c *fiber.Ctx) error {
	var req dto.SyncStartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Payload tidak valid")
		}
	}
	req.Normalize()
	if err := ctl.Validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}

	run, err := ctl.Svc.Trigger(c.UserContext(), syncModel.RunType(req.Mode))
	if err != nil {
		return ctl.syncError(c, err)
	}
	return helper.JsonAccepted(c, "sync selesai diproses", dto.SyncStartResponse{
		RunID:  run.ID,
		Status: string(run.Status),
	})
}

// GET /api/v1/integrations/glpi/sync?limit=
func (ctl *SyncController) List(c *fiber.Ctx) error {
	var q dto.SyncListQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Query tidak valid")
	}
	if err := ctl.Validate.Struct(&q); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}
	if q.Limit == 0 {
		q.Limit = defaultRunListLimit
	}

	runs, err := ctl.Svc.List(c.UserContext(), q.Limit)
	if err != nil {
		return ctl.syncError(c, err)
	}
	return helper.JsonList(c, "ok", dto.ToSyncRunResponses(runs), nil)
}

// GET /api/v1/integrations/glpi/sync/:id
func (ctl *SyncController) Detail(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID tidak valid")
	}
	run, err := ctl.Svc.Get(c.UserContext(), id)
	if err != nil {
		return ctl.syncError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToSyncRunResponse(*run))
}

func (ctl *SyncController) syncError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSyncAlreadyRunning):
		return helper.JsonErrorCode(c, fiber.StatusConflict, constants.CodeSyncAlreadyRunning, "Sync GLPI sedang berjalan")
	case errors.Is(err, service.ErrRunNotFound):
		return helper.JsonErrorCode(c, fiber.StatusNotFound, constants.CodeSyncRunNotFound, "Run sync tidak ditemukan")
	}
	ctl.Log.Error("request gagal", zap.String("path", c.Path()), zap.Error(err))
	return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
}
