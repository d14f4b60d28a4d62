package model

import "time"

const (
	MainCampusCode = "SEDE_CENTRAL"
	MainCampusName = "Sede Central"
	GLPILabCode    = "LAB-GLPI"
	GLPILabName    = "Laboratorio GLPI"
)

type CampusModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	IsMain    bool      `gorm:"not null" json:"is_main"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CampusModel) TableName() string { return "campuses" }

// LabModel: (campus_id, code) is unique.
type LabModel struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CampusID int64  `gorm:"not null;uniqueIndex:uq_labs_campus_code,priority:1" json:"campus_id"`
	Code     string `gorm:"type:varchar(30);not null;uniqueIndex:uq_labs_campus_code,priority:2" json:"code"`
	Name     string `gorm:"type:varchar(120);not null" json:"name"`
}

func (LabModel) TableName() string { return "labs" }
