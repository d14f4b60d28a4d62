// internals/features/events/event/service/event_service.go
package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	eventModel "loginuv_backend/internals/features/events/event/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
)

// Context carries the optional foreign keys stamped on every event.
type Context struct {
	CampusID  *int64
	LabID     *int64
	UserID    *int64
	MachineID *int64
	SessionID *int64
}

// ForMachine fills campus/lab/machine from m. A nil machine yields an empty context.
func ForMachine(m *machineModel.MachineModel) Context {
	if m == nil {
		return Context{}
	}
	return Context{
		CampusID:  ptr(m.CampusID),
		LabID:     ptr(m.LabID),
		MachineID: ptr(m.ID),
	}
}

func (c Context) WithUser(id int64) Context {
	c.UserID = ptr(id)
	return c
}

func (c Context) WithSession(id *int64) Context {
	c.SessionID = id
	return c
}

// Entry is one event waiting to be written.
type Entry struct {
	Type    string
	Context Context
	Payload map[string]any
	At      time.Time
}

func (e Entry) toModel() eventModel.EventModel {
	payload := datatypes.JSONMap{}
	for k, v := range e.Payload {
		payload[k] = v
	}
	return eventModel.EventModel{
		CampusID:  e.Context.CampusID,
		LabID:     e.Context.LabID,
		UserID:    e.Context.UserID,
		MachineID: e.Context.MachineID,
		SessionID: e.Context.SessionID,
		EventType: e.Type,
		Payload:   payload,
		CreatedAt: e.At.UTC(),
	}
}

// Append writes one event inside tx. Events are never updated afterwards.
func Append(tx *gorm.DB, e Entry) error {
	row := e.toModel()
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("append %s event: %w", e.Type, err)
	}
	return nil
}

// AppendEach writes entries one by one, each behind its own savepoint, so a
// bad item is dropped without losing the rest. Returns how many were written.
func AppendEach(tx *gorm.DB, entries []Entry, log *zap.Logger) int {
	written := 0
	for i, e := range entries {
		sp := fmt.Sprintf("event_item_%d", i)
		if err := tx.SavePoint(sp).Error; err != nil {
			log.Warn("savepoint gagal", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := Append(tx, e); err != nil {
			log.Warn("event dibuang",
				zap.Int("index", i),
				zap.String("type", e.Type),
				zap.Error(err),
			)
			tx.RollbackTo(sp)
			continue
		}
		written++
	}
	return written
}

func ptr[T any](v T) *T { return &v }
