// file: internals/features/reports/usage/dto/report_dto.go
package dto

import (
	"strings"
	"time"
)

const FormatJSON = "json"

/* =======================================================
   QUERY DTOs
   ======================================================= */

type UsageQuery struct {
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Campus   string `query:"campus" validate:"omitempty,max=40"`
	Lab      string `query:"lab" validate:"omitempty,max=40"`
	UserCode string `query:"user_code" validate:"omitempty,max=60"`
	Plan     string `query:"plan" validate:"omitempty,max=120"`
	Semester string `query:"semester" validate:"omitempty,max=20"`
	Format   string `query:"format"`
}

type AttendanceQuery struct {
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	UserCode string `query:"user_code" validate:"omitempty,max=60"`
	Plan     string `query:"plan" validate:"omitempty,max=120"`
	Semester string `query:"semester" validate:"omitempty,max=20"`
	Format   string `query:"format"`
}

// UsageFilter narrows sessions by start time and by campus, lab or user attributes.
// Empty strings and nil times mean "no filter".
type UsageFilter struct {
	From     *time.Time
	To       *time.Time
	Campus   string
	Lab      string
	UserCode string
	Plan     string
	Semester string
}

type AttendanceFilter struct {
	From     *time.Time
	To       *time.Time
	UserCode string
	Plan     string
	Semester string
}

// parseInstant expects a value already checked by the datetime validator.
func parseInstant(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// WantsJSON reports whether the caller asked for the only implemented format.
func WantsJSON(format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	return f == "" || f == FormatJSON
}

func (q UsageQuery) ToFilter() UsageFilter {
	return UsageFilter{
		From:     parseInstant(q.From),
		To:       parseInstant(q.To),
		Campus:   strings.TrimSpace(q.Campus),
		Lab:      strings.TrimSpace(q.Lab),
		UserCode: strings.TrimSpace(q.UserCode),
		Plan:     strings.TrimSpace(q.Plan),
		Semester: strings.TrimSpace(q.Semester),
	}
}

func (q AttendanceQuery) ToFilter() AttendanceFilter {
	return AttendanceFilter{
		From:     parseInstant(q.From),
		To:       parseInstant(q.To),
		UserCode: strings.TrimSpace(q.UserCode),
		Plan:     strings.TrimSpace(q.Plan),
		Semester: strings.TrimSpace(q.Semester),
	}
}

/* =======================================================
   RESPONSE DTOs
   ======================================================= */

type UsageReport struct {
	TotalSessions  int64     `json:"total_sessions"`
	ActiveSessions int64     `json:"active_sessions"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type AttendanceRow struct {
	UserCode string `json:"user_code"`
	FullName string `json:"full_name"`
	Sessions int64  `json:"sessions"`
}

type AttendanceReport struct {
	Rows        []AttendanceRow `json:"rows"`
	GeneratedAt time.Time       `json:"generated_at"`
}
