// file: internals/features/users/csvimport/controller/import_controller.go
package controller

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/users/csvimport/dto"
	"loginuv_backend/internals/features/users/csvimport/service"
	helper "loginuv_backend/internals/helpers"
	authMiddleware "loginuv_backend/internals/middlewares/auth"
)

const defaultImportListLimit = 20

type ImportController struct {
	Svc      *service.ImportService
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewImportController(svc *service.ImportService, v *validator.Validate, log *zap.Logger) *ImportController {
	return &ImportController{Svc: svc, Validate: v, Log: log.Named("csv_import_controller")}
}

// POST /api/v1/users/import-csv (multipart, field "file")
func (ctl *ImportController) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return helper.JsonValidationError(c, map[string][]string{"file": {"required"}})
	}
	f, err := fh.Open()
	if err != nil {
		return ctl.importError(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return ctl.importError(c, fmt.Errorf("read upload: %w", err))
	}

	up := service.Upload{Filename: fh.Filename, Data: data}
	if id, ok := c.Locals(authMiddleware.LocUserID).(int64); ok {
		up.ImportedBy = &id
	}

	imp, err := ctl.Svc.Import(c.UserContext(), up)
	if err != nil {
		return ctl.importError(c, err)
	}
	return helper.JsonAccepted(c, "import CSV selesai diproses", dto.ToImportResponse(*imp))
}

// GET /api/v1/users/import-csv?limit=
func (ctl *ImportController) List(c *fiber.Ctx) error {
	var q dto.ImportListQuery
	if err := c.QueryParser(&q); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Query tidak valid")
	}
	if err := ctl.Validate.Struct(&q); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrors(err))
	}
	if q.Limit == 0 {
		q.Limit = defaultImportListLimit
	}

	rows, err := ctl.Svc.List(c.UserContext(), q.Limit)
	if err != nil {
		return ctl.importError(c, err)
	}
	return helper.JsonList(c, "ok", dto.ToImportListItems(rows), nil)
}

// GET /api/v1/users/import-csv/:id
func (ctl *ImportController) Detail(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID tidak valid")
	}
	imp, errRows, err := ctl.Svc.Get(c.UserContext(), id)
	if err != nil {
		return ctl.importError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.ToImportDetail(*imp, errRows))
}

// GET /api/v1/users/import-csv/:id/errors.csv
func (ctl *ImportController) DownloadErrors(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID tidak valid")
	}
	body, err := ctl.Svc.ErrorsCSV(c.UserContext(), id)
	if err != nil {
		return ctl.importError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="import_%d_errors.csv"`, id))
	return c.Send(body)
}

func (ctl *ImportController) importError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrFilenameRequired):
		return helper.JsonErrorCode(c, fiber.StatusBadRequest, constants.CodeFilenameRequired, "Nama file wajib ada")
	case errors.Is(err, service.ErrInvalidEncoding):
		return helper.JsonErrorCode(c, fiber.StatusBadRequest, constants.CodeInvalidCSVEncoding, "File CSV harus UTF-8")
	case errors.Is(err, service.ErrInvalidHeaders):
		return helper.JsonErrorCode(c, fiber.StatusBadRequest, constants.CodeInvalidCSVHeaders, "Header CSV wajib: code, full_name, role, password")
	case errors.Is(err, service.ErrImportNotFound):
		return helper.JsonErrorCode(c, fiber.StatusNotFound, constants.CodeCSVImportNotFound, "Import CSV tidak ditemukan")
	}
	ctl.Log.Error("request gagal", zap.String("path", c.Path()), zap.Error(err))
	return helper.JsonError(c, fiber.StatusInternalServerError, "Terjadi kesalahan pada server")
}
