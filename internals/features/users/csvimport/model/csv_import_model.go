package model

import (
	"time"

	"gorm.io/datatypes"
)

type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusSuccess    ImportStatus = "success"
	ImportStatusPartial    ImportStatus = "partial"
	ImportStatusFailed     ImportStatus = "failed"
)

type RowStatus string

const (
	RowStatusOK      RowStatus = "ok"
	RowStatusError   RowStatus = "error"
	RowStatusSkipped RowStatus = "skipped"
)

/* =========================================
   Model: csv_imports
========================================= */

// CsvImportModel is one uploaded roster file.
type CsvImportModel struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ImportedBy *int64            `gorm:"index" json:"imported_by,omitempty"`
	Filename   string            `gorm:"type:varchar(200);not null" json:"filename"`
	Status     ImportStatus      `gorm:"type:varchar(20);not null" json:"status"`
	StartedAt  time.Time         `gorm:"not null;index" json:"started_at"`
	EndedAt    *time.Time        `json:"ended_at,omitempty"`
	Summary    datatypes.JSONMap `gorm:"type:jsonb;not null" json:"summary"`
}

func (CsvImportModel) TableName() string { return "csv_imports" }

/* =========================================
   Model: csv_import_rows
========================================= */

type CsvImportRowModel struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ImportID     int64             `gorm:"not null;index:idx_csv_import_rows_import,priority:1" json:"import_id"`
	RowNumber    int               `gorm:"not null;index:idx_csv_import_rows_import,priority:2" json:"row_number"`
	RowStatus    RowStatus         `gorm:"type:varchar(20);not null" json:"row_status"`
	ErrorMessage *string           `gorm:"type:text" json:"error_message,omitempty"`
	RawData      datatypes.JSONMap `gorm:"type:jsonb;not null" json:"raw_data"`
}

func (CsvImportRowModel) TableName() string { return "csv_import_rows" }
