package service

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	machineModel "loginuv_backend/internals/features/machines/machine/model"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	"loginuv_backend/internals/testutil"
)

func reload(t *testing.T, db *gorm.DB, id int64) machineModel.MachineModel {
	t.Helper()
	var m machineModel.MachineModel
	if err := db.First(&m, id).Error; err != nil {
		t.Fatalf("reload machine: %v", err)
	}
	return m
}

func activeSession(t *testing.T, db *gorm.DB, userID, machineID int64) sessionModel.SessionModel {
	t.Helper()
	s := sessionModel.SessionModel{
		UserID:    userID,
		MachineID: machineID,
		AuthMode:  sessionModel.AuthModeCentral,
		Status:    sessionModel.SessionStatusActive,
		StartAt:   time.Now().UTC(),
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func TestTracker_OccupyRelease(t *testing.T) {
	db := testutil.OpenDB(t)
	lab := testutil.SeedLab(t, db)
	m := testutil.SeedMachine(t, db, lab, "PC-001")
	tr := NewTracker(zaptest.NewLogger(t))
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	if err := tr.Occupy(db, &m, at); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	got := reload(t, db, m.ID)
	if got.Status != machineModel.MachineStatusOccupied {
		t.Fatalf("expected occupied, got %s", got.Status)
	}
	if got.LastSeenAt == nil || !got.LastSeenAt.Equal(at) {
		t.Fatalf("expected last_seen_at %s, got %v", at, got.LastSeenAt)
	}

	s1 := activeSession(t, db, 1, m.ID)
	s2 := activeSession(t, db, 2, m.ID)

	// s1 closes while s2 is still active: machine stays occupied.
	if err := tr.Release(db, &m, s1.ID, at.Add(time.Minute)); err != nil {
		t.Fatalf("release: %v", err)
	}
	got = reload(t, db, m.ID)
	if got.Status != machineModel.MachineStatusOccupied {
		t.Fatalf("expected still occupied, got %s", got.Status)
	}
	if !got.LastSeenAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("expected last_seen_at stamped on release, got %v", got.LastSeenAt)
	}

	if err := db.Model(&s1).Update("status", sessionModel.SessionStatusClosed).Error; err != nil {
		t.Fatalf("close s1: %v", err)
	}
	if err := tr.Release(db, &m, s2.ID, at.Add(2*time.Minute)); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got = reload(t, db, m.ID); got.Status != machineModel.MachineStatusFree {
		t.Fatalf("expected free, got %s", got.Status)
	}
}

func TestTracker_ReleaseKeepsMaintenance(t *testing.T) {
	db := testutil.OpenDB(t)
	lab := testutil.SeedLab(t, db)
	m := testutil.SeedMachine(t, db, lab, "PC-009")
	if err := db.Model(&m).Update("status", machineModel.MachineStatusMaintenance).Error; err != nil {
		t.Fatalf("set maintenance: %v", err)
	}
	tr := NewTracker(zaptest.NewLogger(t))
	if err := tr.Release(db, &m, 0, time.Now()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := reload(t, db, m.ID); got.Status != machineModel.MachineStatusMaintenance {
		t.Fatalf("expected maintenance untouched, got %s", got.Status)
	}
}

func TestTracker_UnknownMachineIsNoop(t *testing.T) {
	db := testutil.OpenDB(t)
	tr := NewTracker(zaptest.NewLogger(t))
	now := time.Now()

	if err := tr.Occupy(db, nil, now); err != nil {
		t.Fatalf("expected nil machine to be a no-op, got %v", err)
	}
	ghost := &machineModel.MachineModel{ID: 999}
	if err := tr.Occupy(db, ghost, now); err != nil {
		t.Fatalf("expected deleted machine to be a no-op, got %v", err)
	}
	if err := tr.Release(db, ghost, 0, now); err != nil {
		t.Fatalf("expected deleted machine to be a no-op, got %v", err)
	}
	if err := tr.Touch(db, ghost, now); err != nil {
		t.Fatalf("expected deleted machine to be a no-op, got %v", err)
	}
	if ghost.Status != "" {
		t.Fatalf("expected ghost untouched, got %s", ghost.Status)
	}
}

func TestTracker_TouchLeavesStatus(t *testing.T) {
	db := testutil.OpenDB(t)
	lab := testutil.SeedLab(t, db)
	m := testutil.SeedMachine(t, db, lab, "PC-002")
	tr := NewTracker(zaptest.NewLogger(t))
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	if err := tr.Touch(db, &m, at); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got := reload(t, db, m.ID)
	if got.Status != machineModel.MachineStatusFree {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}
	if got.LastSeenAt == nil || !got.LastSeenAt.Equal(at) {
		t.Fatalf("expected last_seen_at %s, got %v", at, got.LastSeenAt)
	}
}

func TestTracker_ReleaseLocksMachineBeforeCounting(t *testing.T) {
	db := testutil.OpenDB(t)
	lab := testutil.SeedLab(t, db)
	m := testutil.SeedMachine(t, db, lab, "PC-003")
	tr := NewTracker(zaptest.NewLogger(t))

	type query struct {
		table  string
		locked bool
	}
	var seen []query
	if err := db.Callback().Query().After("gorm:query").Register("test:record_queries", func(d *gorm.DB) {
		_, locked := d.Statement.Clauses["FOR"]
		seen = append(seen, query{table: d.Statement.Table, locked: locked})
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if err := tr.Release(db, &m, 0, time.Now().UTC()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(seen) < 2 {
		t.Fatalf("expected lock and count queries, got %+v", seen)
	}
	if seen[0].table != "machines" || !seen[0].locked {
		t.Fatalf("expected first query to lock the machine row, got %+v", seen[0])
	}
	if seen[1].table != "sessions" {
		t.Fatalf("expected session count after the lock, got %+v", seen[1])
	}
}
