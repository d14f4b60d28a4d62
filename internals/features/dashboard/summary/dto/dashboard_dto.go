package dto

import "time"

type SummaryResponse struct {
	ConnectedUsers   int64     `json:"connected_users"`
	MachinesOccupied int64     `json:"machines_occupied"`
	MachinesFree     int64     `json:"machines_free"`
	Alerts           int       `json:"alerts"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type MachineStatusItem struct {
	Hostname     string     `json:"hostname"`
	Status       string     `json:"status"`
	UserCode     *string    `json:"user_code"`
	SessionStart *time.Time `json:"session_start"`
}

type LabStatusResponse struct {
	CampusCode string              `json:"campus_code"`
	LabCode    string              `json:"lab_code"`
	Machines   []MachineStatusItem `json:"machines"`
}
