package model

import (
	"time"
)

/* =========================
   Enums (selaras dgn DB)
========================= */

type MachineStatus string

const (
	MachineStatusFree        MachineStatus = "free"
	MachineStatusOccupied    MachineStatus = "occupied"
	MachineStatusOffline     MachineStatus = "offline"
	MachineStatusMaintenance MachineStatus = "maintenance"
)

const (
	OSWindows = "windows"
	OSDebian  = "debian"
)

/* =========================================
   Model: machines
========================================= */

// MachineModel.Status is a projection of the active sessions on the machine.
// Only the occupancy tracker writes free/occupied.
type MachineModel struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CampusID int64 `gorm:"not null;index" json:"campus_id"`
	LabID    int64 `gorm:"not null;index" json:"lab_id"`

	Hostname string  `gorm:"type:varchar(80);uniqueIndex;not null" json:"hostname"`
	AssetTag *string `gorm:"type:varchar(80)" json:"asset_tag,omitempty"`
	OSType   string  `gorm:"type:varchar(20);not null" json:"os_type"`

	Status     MachineStatus `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	LastSeenAt *time.Time    `json:"last_seen_at,omitempty"`

	GLPIExternalID *string `gorm:"column:glpi_external_id;type:varchar(80);index" json:"glpi_external_id,omitempty"`
	IsActive       bool    `gorm:"not null" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MachineModel) TableName() string { return "machines" }
