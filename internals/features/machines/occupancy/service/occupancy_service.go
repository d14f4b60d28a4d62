// internals/features/machines/occupancy/service/occupancy_service.go
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	machineModel "loginuv_backend/internals/features/machines/machine/model"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
)

// Tracker is the only writer of machines.status for free/occupied.
// Every method runs inside the caller's transaction.
type Tracker struct {
	log *zap.Logger
}

func NewTracker(log *zap.Logger) *Tracker {
	return &Tracker{log: log.Named("occupancy")}
}

// Occupy marks the machine occupied and stamps last_seen_at.
func (t *Tracker) Occupy(tx *gorm.DB, m *machineModel.MachineModel, at time.Time) error {
	if m == nil {
		t.log.Debug("occupy dilewati: tanpa mesin")
		return nil
	}
	res := tx.Model(&machineModel.MachineModel{}).
		Where("id = ?", m.ID).
		Updates(map[string]any{
			"status":       machineModel.MachineStatusOccupied,
			"last_seen_at": at.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("occupy machine %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		t.log.Warn("occupy dilewati: mesin sudah tidak ada", zap.Int64("machine_id", m.ID))
		return nil
	}
	m.Status = machineModel.MachineStatusOccupied
	seen := at.UTC()
	m.LastSeenAt = &seen
	return nil
}

// Release frees the machine unless another active session (other than
// closingSessionID) still references it. last_seen_at is always stamped.
// Machines set offline or under maintenance keep that status.
//
// The machine row is locked before counting, so a concurrent Occupy (whose
// UPDATE holds the same row lock) is either fully visible to the count or
// runs after this release commits.
func (t *Tracker) Release(tx *gorm.DB, m *machineModel.MachineModel, closingSessionID int64, at time.Time) error {
	if m == nil {
		t.log.Debug("release dilewati: tanpa mesin")
		return nil
	}

	var locked machineModel.MachineModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", m.ID).
		Take(&locked).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			t.log.Warn("release dilewati: mesin sudah tidak ada", zap.Int64("machine_id", m.ID))
			return nil
		}
		return fmt.Errorf("lock machine %d: %w", m.ID, err)
	}

	var others int64
	if err := tx.Model(&sessionModel.SessionModel{}).
		Where("machine_id = ? AND status = ? AND id <> ?", m.ID, sessionModel.SessionStatusActive, closingSessionID).
		Count(&others).Error; err != nil {
		return fmt.Errorf("count sessions on machine %d: %w", m.ID, err)
	}

	if err := t.Touch(tx, m, at); err != nil {
		return err
	}
	if others > 0 {
		return nil
	}

	res := tx.Model(&machineModel.MachineModel{}).
		Where("id = ? AND status = ?", m.ID, machineModel.MachineStatusOccupied).
		Update("status", machineModel.MachineStatusFree)
	if res.Error != nil {
		return fmt.Errorf("release machine %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		m.Status = machineModel.MachineStatusFree
	}
	return nil
}

// Touch stamps last_seen_at without changing status.
func (t *Tracker) Touch(tx *gorm.DB, m *machineModel.MachineModel, at time.Time) error {
	if m == nil {
		return nil
	}
	res := tx.Model(&machineModel.MachineModel{}).
		Where("id = ?", m.ID).
		Update("last_seen_at", at.UTC())
	if res.Error != nil {
		return fmt.Errorf("touch machine %d: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		t.log.Warn("touch dilewati: mesin sudah tidak ada", zap.Int64("machine_id", m.ID))
		return nil
	}
	seen := at.UTC()
	m.LastSeenAt = &seen
	return nil
}
