package model

import (
	"time"

	"gorm.io/gorm"
)

// UserModel merepresentasikan tabel users di database
type UserModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string  `gorm:"type:varchar(60);uniqueIndex;not null" json:"code"`
	FullName     string  `gorm:"type:varchar(160);not null" json:"full_name"`
	Email        *string `gorm:"type:varchar(180)" json:"email,omitempty"`
	Role         string  `gorm:"type:varchar(20);not null" json:"role"`
	AcademicPlan *string `gorm:"type:varchar(120)" json:"academic_plan,omitempty"`
	Semester     *string `gorm:"type:varchar(20)" json:"semester,omitempty"`
	PasswordHash string  `gorm:"type:text;not null" json:"-"`

	AllowMultiSession bool `gorm:"not null" json:"allow_multi_session"`
	MaxSessions       int  `gorm:"type:smallint;not null" json:"max_sessions"`

	IsActive       bool    `gorm:"not null" json:"is_active"`
	Source         string  `gorm:"type:varchar(20);not null" json:"source"`
	GLPIExternalID *string `gorm:"column:glpi_external_id;type:varchar(80);index" json:"glpi_external_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName memastikan nama tabel sesuai dengan skema database
func (UserModel) TableName() string {
	return "users"
}

// ClampSessions enforces max_sessions = 1 for single-session accounts.
func (u *UserModel) ClampSessions() {
	if !u.AllowMultiSession || u.MaxSessions < 1 {
		u.MaxSessions = 1
	}
}

// EffectiveLimit is the number of simultaneously active sessions the user may hold.
func (u *UserModel) EffectiveLimit() int {
	if !u.AllowMultiSession {
		return 1
	}
	if u.MaxSessions < 1 {
		return 1
	}
	return u.MaxSessions
}

func (u *UserModel) BeforeSave(tx *gorm.DB) error {
	u.ClampSessions()
	return nil
}
