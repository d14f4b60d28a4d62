// internals/features/dashboard/summary/service/dashboard_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"loginuv_backend/internals/features/dashboard/summary/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
)

var ErrLabNotFound = errors.New("lab not found")

// DashboardService serves read-only projections; it never writes.
type DashboardService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewDashboardService(db *gorm.DB, log *zap.Logger) *DashboardService {
	return &DashboardService{db: db, log: log.Named("dashboard"), now: time.Now}
}

// Summary counts over active machines, optionally restricted to one campus code.
func (s *DashboardService) Summary(ctx context.Context, campus string) (*dto.SummaryResponse, error) {
	db := s.db.WithContext(ctx)

	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Joins("JOIN campuses c ON c.id = m.campus_id").Where("m.is_active = ?", true)
		if campus != "" {
			q = q.Where("c.code = ?", campus)
		}
		return q
	}

	var live struct {
		Occupied  int64
		Connected int64
	}
	err := db.Table("sessions AS s").
		Select("COUNT(DISTINCT s.machine_id) AS occupied, COUNT(DISTINCT s.user_id) AS connected").
		Joins("JOIN machines m ON m.id = s.machine_id").
		Scopes(scope).
		Where("s.status = ?", sessionModel.SessionStatusActive).
		Scan(&live).Error
	if err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}

	var total int64
	if err := db.Table("machines AS m").Scopes(scope).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count machines: %w", err)
	}

	return &dto.SummaryResponse{
		ConnectedUsers:   live.Connected,
		MachinesOccupied: live.Occupied,
		MachinesFree:     max(total-live.Occupied, 0),
		Alerts:           0,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

// LabStatus lists the lab's machines by hostname with the earliest active session on each.
func (s *DashboardService) LabStatus(ctx context.Context, campusCode, labCode string) (*dto.LabStatusResponse, error) {
	db := s.db.WithContext(ctx)

	var lab struct{ ID int64 }
	res := db.Table("labs AS l").
		Select("l.id").
		Joins("JOIN campuses c ON c.id = l.campus_id").
		Where("c.code = ? AND l.code = ?", campusCode, labCode).
		Limit(1).
		Scan(&lab)
	if res.Error != nil {
		return nil, fmt.Errorf("find lab: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrLabNotFound
	}

	var rows []dto.MachineStatusItem
	err := db.Table("machines AS m").
		Select("m.hostname, m.status, u.code AS user_code, s.start_at AS session_start").
		Joins("LEFT JOIN sessions s ON s.machine_id = m.id AND s.status = ?", sessionModel.SessionStatusActive).
		Joins("LEFT JOIN users u ON u.id = s.user_id").
		Where("m.lab_id = ?", lab.ID).
		Order("m.hostname ASC").Order("s.start_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lab machines: %w", err)
	}

	// shared machines come back once per active session
	machines := make([]dto.MachineStatusItem, 0, len(rows))
	for _, r := range rows {
		if n := len(machines); n > 0 && machines[n-1].Hostname == r.Hostname {
			continue
		}
		machines = append(machines, r)
	}

	return &dto.LabStatusResponse{CampusCode: campusCode, LabCode: labCode, Machines: machines}, nil
}
