package model

import (
	"time"
)

/* =========================
   Enums
========================= */

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
	SessionStatusForced SessionStatus = "forced"
)

const (
	AuthModeCentral = "central"
	AuthModeRelay   = "relay"
)

type CloseReason string

const (
	CloseReasonLogout             CloseReason = "logout"
	CloseReasonShutdown           CloseReason = "shutdown"
	CloseReasonUnexpectedShutdown CloseReason = "unexpected_shutdown"
	CloseReasonAdminForce         CloseReason = "admin_force"
	CloseReasonTimeout            CloseReason = "timeout"
)

// ClientCloseReasons are the reasons a machine may report on logout.
var ClientCloseReasons = []CloseReason{
	CloseReasonLogout,
	CloseReasonShutdown,
	CloseReasonUnexpectedShutdown,
	CloseReasonAdminForce,
}

func IsClientCloseReason(r string) bool {
	for _, v := range ClientCloseReasons {
		if string(v) == r {
			return true
		}
	}
	return false
}

/* =========================================
   Model: sessions
========================================= */

type SessionModel struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64 `gorm:"not null;index:idx_sessions_user_status,priority:1" json:"user_id"`
	MachineID int64 `gorm:"not null;index:idx_sessions_machine_status,priority:1" json:"machine_id"`

	AuthMode string        `gorm:"type:varchar(20);not null" json:"auth_mode"`
	Status   SessionStatus `gorm:"type:varchar(20);not null;index:idx_sessions_user_status,priority:2;index:idx_sessions_machine_status,priority:2" json:"status"`

	StartAt     time.Time    `gorm:"not null" json:"start_at"`
	EndAt       *time.Time   `json:"end_at,omitempty"`
	CloseReason *CloseReason `gorm:"type:varchar(30)" json:"close_reason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (SessionModel) TableName() string { return "sessions" }
