// file: internals/features/users/csvimport/dto/csv_import_dto.go
package dto

import (
	"time"

	csvModel "loginuv_backend/internals/features/users/csvimport/model"
)

type ImportListQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

type ImportResponse struct {
	ImportID int64          `json:"import_id"`
	Status   string         `json:"status"`
	Summary  map[string]any `json:"summary"`
}

type ImportListItem struct {
	ImportID  int64          `json:"import_id"`
	Filename  string         `json:"filename"`
	Status    string         `json:"status"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at"`
	Summary   map[string]any `json:"summary"`
}

type ImportRowError struct {
	RowNumber    int            `json:"row_number"`
	ErrorMessage string         `json:"error_message"`
	RawData      map[string]any `json:"raw_data"`
}

type ImportDetailResponse struct {
	ImportListItem
	ErrorRows []ImportRowError `json:"error_rows"`
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func ToImportResponse(m csvModel.CsvImportModel) ImportResponse {
	return ImportResponse{ImportID: m.ID, Status: string(m.Status), Summary: orEmpty(m.Summary)}
}

func ToImportListItem(m csvModel.CsvImportModel) ImportListItem {
	return ImportListItem{
		ImportID:  m.ID,
		Filename:  m.Filename,
		Status:    string(m.Status),
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Summary:   orEmpty(m.Summary),
	}
}

func ToImportListItems(rows []csvModel.CsvImportModel) []ImportListItem {
	out := make([]ImportListItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToImportListItem(r))
	}
	return out
}

func ToImportRowError(r csvModel.CsvImportRowModel) ImportRowError {
	msg := "Unknown error"
	if r.ErrorMessage != nil && *r.ErrorMessage != "" {
		msg = *r.ErrorMessage
	}
	return ImportRowError{RowNumber: r.RowNumber, ErrorMessage: msg, RawData: orEmpty(r.RawData)}
}

func ToImportDetail(m csvModel.CsvImportModel, errs []csvModel.CsvImportRowModel) ImportDetailResponse {
	out := ImportDetailResponse{ImportListItem: ToImportListItem(m), ErrorRows: make([]ImportRowError, 0, len(errs))}
	for _, r := range errs {
		out.ErrorRows = append(out.ErrorRows, ToImportRowError(r))
	}
	return out
}
