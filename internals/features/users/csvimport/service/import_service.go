// internals/features/users/csvimport/service/import_service.go
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loginuv_backend/internals/constants"
	userModel "loginuv_backend/internals/features/users/account/model"
	csvModel "loginuv_backend/internals/features/users/csvimport/model"
)

var (
	ErrFilenameRequired = errors.New("filename is required")
	ErrInvalidEncoding  = errors.New("csv file is not valid UTF-8")
	ErrInvalidHeaders   = errors.New("csv header is missing required columns")
	ErrImportNotFound   = errors.New("csv import not found")
)

// RequiredColumns must all appear in the header row.
var RequiredColumns = []string{"code", "full_name", "role", "password"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sorted keys keep errors.csv stable across downloads
var stdJSON = sonic.ConfigStd

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type ImportService struct {
	db     *gorm.DB
	hasher PasswordHasher
	log    *zap.Logger
	now    func() time.Time
}

func NewImportService(db *gorm.DB, hasher PasswordHasher, log *zap.Logger) *ImportService {
	return &ImportService{db: db, hasher: hasher, log: log.Named("csv_import"), now: time.Now}
}

type Upload struct {
	Filename   string
	ImportedBy *int64
	Data       []byte
}

/* =========================================================
   PARSE
========================================================= */

type rosterRow struct {
	number int
	values map[string]string
	err    error
}

// parseRoster rejects the whole file on bad encoding or headers. Individual
// malformed rows come back with err set so they can be reported per row.
func parseRoster(data []byte) ([]rosterRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, ErrInvalidHeaders
	}
	present := make(map[string]bool, len(header))
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		present[header[i]] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return nil, ErrInvalidHeaders
		}
	}

	var rows []rosterRow
	for n := 2; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row := rosterRow{number: n, values: make(map[string]string, len(header))}
		for i, h := range header {
			if i < len(rec) {
				row.values[h] = rec[i]
			} else {
				row.values[h] = ""
			}
		}
		if err != nil {
			row.err = fmt.Errorf("malformed row: %v", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseBool(raw string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y", "si", "on":
		return true
	}
	return false
}

func optional(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

func rawData(values map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

/* =========================================================
   IMPORT
========================================================= */

// Import upserts every valid row by user code with source=csv. Each row runs
// behind its own savepoint; a bad row is recorded and the rest continue.
func (s *ImportService) Import(ctx context.Context, up Upload) (*csvModel.CsvImportModel, error) {
	filename := strings.TrimSpace(up.Filename)
	if filename == "" {
		return nil, ErrFilenameRequired
	}
	rows, err := parseRoster(up.Data)
	if err != nil {
		return nil, err
	}

	imp := csvModel.CsvImportModel{
		ImportedBy: up.ImportedBy,
		Filename:   filename,
		Status:     csvModel.ImportStatusProcessing,
		StartedAt:  s.now().UTC(),
		Summary:    datatypes.JSONMap{},
	}

	var created, updated, failed int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&imp).Error; err != nil {
			return fmt.Errorf("create import: %w", err)
		}

		for _, row := range rows {
			sp := fmt.Sprintf("csv_row_%d", row.number)
			if err := tx.SavePoint(sp).Error; err != nil {
				return fmt.Errorf("savepoint row %d: %w", row.number, err)
			}

			rowErr := row.err
			var wasCreated bool
			if rowErr == nil {
				wasCreated, rowErr = s.applyRow(tx, row.values)
			}

			entry := csvModel.CsvImportRowModel{
				ImportID:  imp.ID,
				RowNumber: row.number,
				RowStatus: csvModel.RowStatusOK,
				RawData:   rawData(row.values),
			}
			if rowErr != nil {
				tx.RollbackTo(sp)
				failed++
				msg := rowErr.Error()
				entry.RowStatus = csvModel.RowStatusError
				entry.ErrorMessage = &msg
			} else if wasCreated {
				created++
			} else {
				updated++
			}
			if err := tx.Create(&entry).Error; err != nil {
				return fmt.Errorf("record row %d: %w", row.number, err)
			}
		}

		ended := s.now().UTC()
		imp.EndedAt = &ended
		imp.Summary = datatypes.JSONMap{
			"processed": len(rows),
			"created":   created,
			"updated":   updated,
			"errors":    failed,
		}
		switch {
		case failed == 0:
			imp.Status = csvModel.ImportStatusSuccess
		case created+updated > 0:
			imp.Status = csvModel.ImportStatusPartial
		default:
			imp.Status = csvModel.ImportStatusFailed
		}
		return tx.Model(&csvModel.CsvImportModel{}).
			Where("id = ?", imp.ID).
			Updates(map[string]any{
				"status":   imp.Status,
				"summary":  imp.Summary,
				"ended_at": imp.EndedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("import CSV selesai",
		zap.Int64("import_id", imp.ID),
		zap.String("filename", imp.Filename),
		zap.String("status", string(imp.Status)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("errors", failed),
	)
	return &imp, nil
}

// applyRow reports whether a new user was created.
func (s *ImportService) applyRow(tx *gorm.DB, v map[string]string) (bool, error) {
	code := strings.TrimSpace(v["code"])
	fullName := strings.TrimSpace(v["full_name"])
	role := strings.TrimSpace(v["role"])
	password := v["password"]
	if code == "" || fullName == "" || !constants.IsValidRole(role) || password == "" {
		return false, errors.New("required fields missing or invalid role")
	}

	allowMulti := parseBool(v["allow_multi_session"], false)
	maxSessions := 1
	if raw := strings.TrimSpace(v["max_sessions"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return false, fmt.Errorf("max_sessions %q is not an integer", raw)
		}
		maxSessions = n
	}
	if maxSessions < 1 {
		return false, errors.New("max_sessions must be >= 1")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	var user userModel.UserModel
	err = tx.Where("code = ?", code).Take(&user).Error
	isNew := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNew {
		return false, fmt.Errorf("load user %s: %w", code, err)
	}

	user.Code = code
	user.FullName = fullName
	user.Email = optional(v["email"])
	user.Role = role
	user.AcademicPlan = optional(v["academic_plan"])
	user.Semester = optional(v["semester"])
	user.PasswordHash = hash
	user.AllowMultiSession = allowMulti
	user.MaxSessions = maxSessions
	user.IsActive = parseBool(v["is_active"], true)
	user.Source = constants.SourceCSV

	if isNew {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return false, fmt.Errorf("user code %s already exists", code)
			}
			return false, fmt.Errorf("create user %s: %w", code, err)
		}
		return true, nil
	}
	if err := tx.Save(&user).Error; err != nil {
		return false, fmt.Errorf("update user %s: %w", code, err)
	}
	return false, nil
}

/* =========================================================
   READS
========================================================= */

func (s *ImportService) List(ctx context.Context, limit int) ([]csvModel.CsvImportModel, error) {
	var rows []csvModel.CsvImportModel
	if err := s.db.WithContext(ctx).
		Order("started_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list csv imports: %w", err)
	}
	return rows, nil
}

// Get returns the import with its failed rows ordered by row number.
func (s *ImportService) Get(ctx context.Context, id int64) (*csvModel.CsvImportModel, []csvModel.CsvImportRowModel, error) {
	db := s.db.WithContext(ctx)

	var imp csvModel.CsvImportModel
	if err := db.First(&imp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrImportNotFound
		}
		return nil, nil, fmt.Errorf("load csv import: %w", err)
	}

	var errs []csvModel.CsvImportRowModel
	if err := db.Where("import_id = ? AND row_status = ?", id, csvModel.RowStatusError).
		Order("row_number ASC").
		Find(&errs).Error; err != nil {
		return nil, nil, fmt.Errorf("load csv import rows: %w", err)
	}
	return &imp, errs, nil
}

// ErrorsCSV renders the failed rows as row_number,error_message,raw_data
// with raw_data encoded as JSON.
func (s *ImportService) ErrorsCSV(ctx context.Context, id int64) ([]byte, error) {
	_, rows, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"row_number", "error_message", "raw_data"})
	for _, r := range rows {
		msg := "Unknown error"
		if r.ErrorMessage != nil && *r.ErrorMessage != "" {
			msg = *r.ErrorMessage
		}
		raw, err := stdJSON.MarshalToString(map[string]any(r.RawData))
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", r.RowNumber, err)
		}
		_ = w.Write([]string{strconv.Itoa(r.RowNumber), msg, raw})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write errors csv: %w", err)
	}
	return buf.Bytes(), nil
}
