// internals/features/reports/usage/service/report_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"loginuv_backend/internals/features/reports/usage/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
)

// ReportService aggregates session history. Read-only.
type ReportService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewReportService(db *gorm.DB, log *zap.Logger) *ReportService {
	return &ReportService{db: db, log: log.Named("reports"), now: time.Now}
}

// Usage counts sessions started inside the window, and how many of them are still active.
func (s *ReportService) Usage(ctx context.Context, f dto.UsageFilter) (*dto.UsageReport, error) {
	q := s.db.WithContext(ctx).Table("sessions AS s").
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN s.status = ? THEN 1 ELSE 0 END), 0) AS active",
			sessionModel.SessionStatusActive).
		Joins("JOIN users u ON u.id = s.user_id").
		Joins("JOIN machines m ON m.id = s.machine_id").
		Joins("JOIN labs l ON l.id = m.lab_id").
		Joins("JOIN campuses c ON c.id = m.campus_id")

	if f.From != nil {
		q = q.Where("s.start_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("s.start_at <= ?", *f.To)
	}
	if f.Campus != "" {
		q = q.Where("c.code = ?", f.Campus)
	}
	if f.Lab != "" {
		q = q.Where("l.code = ?", f.Lab)
	}
	if f.UserCode != "" {
		q = q.Where("u.code = ?", f.UserCode)
	}
	if f.Plan != "" {
		q = q.Where("u.academic_plan = ?", f.Plan)
	}
	if f.Semester != "" {
		q = q.Where("u.semester = ?", f.Semester)
	}

	var agg struct {
		Total  int64
		Active int64
	}
	if err := q.Scan(&agg).Error; err != nil {
		return nil, fmt.Errorf("usage report: %w", err)
	}
	return &dto.UsageReport{
		TotalSessions:  agg.Total,
		ActiveSessions: agg.Active,
		GeneratedAt:    s.now().UTC(),
	}, nil
}

// Attendance lists every active user matching the filter with the number of
// sessions started inside the window, zero included. Ordered by user code.
func (s *ReportService) Attendance(ctx context.Context, f dto.AttendanceFilter) (*dto.AttendanceReport, error) {
	join := []string{"LEFT JOIN sessions s ON s.user_id = u.id"}
	var joinArgs []any
	if f.From != nil {
		join = append(join, "s.start_at >= ?")
		joinArgs = append(joinArgs, *f.From)
	}
	if f.To != nil {
		join = append(join, "s.start_at <= ?")
		joinArgs = append(joinArgs, *f.To)
	}

	q := s.db.WithContext(ctx).Table("users AS u").
		Select("u.code AS user_code, u.full_name AS full_name, COUNT(s.id) AS sessions").
		Joins(strings.Join(join, " AND "), joinArgs...).
		Where("u.is_active = ?", true)
	if f.UserCode != "" {
		q = q.Where("u.code = ?", f.UserCode)
	}
	if f.Plan != "" {
		q = q.Where("u.academic_plan = ?", f.Plan)
	}
	if f.Semester != "" {
		q = q.Where("u.semester = ?", f.Semester)
	}

	rows := []dto.AttendanceRow{}
	if err := q.Group("u.id, u.code, u.full_name").Order("u.code ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}
	return &dto.AttendanceReport{Rows: rows, GeneratedAt: s.now().UTC()}, nil
}
