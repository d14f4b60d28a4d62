package model

import (
	"time"

	"gorm.io/datatypes"
)

type RunType string

const (
	RunTypeManual    RunType = "manual"
	RunTypeScheduled RunType = "scheduled"
)

type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusSuccess    RunStatus = "success"
	RunStatusPartial    RunStatus = "partial"
	RunStatusFailed     RunStatus = "failed"
)

// SyncRunModel records one reconciliation attempt against GLPI.
type SyncRunModel struct {
	ID        int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	RunType   RunType           `gorm:"type:varchar(20);not null" json:"run_type"`
	Status    RunStatus         `gorm:"type:varchar(20);not null;index" json:"status"`
	StartedAt time.Time         `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	Summary   datatypes.JSONMap `gorm:"type:jsonb;not null" json:"summary"`
}

func (SyncRunModel) TableName() string { return "glpi_sync_runs" }
