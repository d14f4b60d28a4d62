// file: internals/features/sessions/session/dto/session_dto.go
package dto

import (
	"strings"
	"time"
)

/* =======================================================
   LOGIN
   ======================================================= */

type LoginRequest struct {
	UserCode   string `json:"user_code" validate:"required,max=60"`
	Password   string `json:"password" validate:"required,max=128"`
	Hostname   string `json:"hostname" validate:"required,max=80"`
	CampusCode string `json:"campus_code" validate:"required,max=30"`
	LabCode    string `json:"lab_code" validate:"required,max=30"`
}

func (r *LoginRequest) Normalize() {
	r.UserCode = strings.TrimSpace(r.UserCode)
	r.Hostname = strings.TrimSpace(r.Hostname)
	r.CampusCode = strings.TrimSpace(r.CampusCode)
	r.LabCode = strings.TrimSpace(r.LabCode)
}

type SessionInfo struct {
	ID       int64  `json:"id"`
	UserCode string `json:"user_code"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Machine  string `json:"machine"`
	AuthMode string `json:"auth_mode"`
}

type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	Session     SessionInfo `json:"session"`
}

/* =======================================================
   LOGOUT / HEARTBEAT / EVENTS
   ======================================================= */

type LogoutRequest struct {
	SessionID int64  `json:"session_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"omitempty,oneof=logout shutdown unexpected_shutdown admin_force"`
}

type HeartbeatRequest struct {
	Hostname      string    `json:"hostname" validate:"required,max=80"`
	SessionID     int64     `json:"session_id" validate:"gte=0"`
	OSType        string    `json:"os_type" validate:"required,oneof=windows debian"`
	UptimeSeconds int64     `json:"uptime_seconds" validate:"gte=0"`
	Timestamp     time.Time `json:"timestamp" validate:"required"`
}

type EventItem struct {
	Type      string         `json:"type" validate:"required,max=40"`
	SessionID *int64         `json:"session_id,omitempty"`
	Timestamp time.Time      `json:"timestamp" validate:"required"`
	Payload   map[string]any `json:"payload"`
}

type BulkEventsRequest struct {
	Hostname string      `json:"hostname" validate:"required,max=80"`
	Events   []EventItem `json:"events" validate:"dive"`
}
