package model

import (
	"time"

	"gorm.io/datatypes"
)

// EventModel is insert-only. Context ids are nullable because events can
// arrive from machines the server does not know.
type EventModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CampusID  *int64 `gorm:"index" json:"campus_id,omitempty"`
	LabID     *int64 `json:"lab_id,omitempty"`
	UserID    *int64 `json:"user_id,omitempty"`
	MachineID *int64 `gorm:"index" json:"machine_id,omitempty"`
	SessionID *int64 `gorm:"index" json:"session_id,omitempty"`

	EventType string            `gorm:"type:varchar(40);not null;index" json:"event_type"`
	Payload   datatypes.JSONMap `gorm:"type:jsonb;not null" json:"payload"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (EventModel) TableName() string { return "events" }
