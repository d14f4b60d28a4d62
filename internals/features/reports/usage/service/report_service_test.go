package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"loginuv_backend/internals/features/reports/usage/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	userModel "loginuv_backend/internals/features/users/account/model"
	"loginuv_backend/internals/testutil"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type reportFixture struct {
	db  *gorm.DB
	svc *ReportService
}

func strPtr(s string) *string { return &s }

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := NewReportService(db, zaptest.NewLogger(t))
	svc.now = func() time.Time { return base.Add(72 * time.Hour) }

	lab := testutil.SeedLab(t, db)
	pc1 := testutil.SeedMachine(t, db, lab, "PC-001")
	pc2 := testutil.SeedMachine(t, db, lab, "PC-002")

	ana := testutil.SeedUser(t, db, userModel.UserModel{
		Code: "A001", PasswordHash: "x", MaxSessions: 1, IsActive: true,
		AcademicPlan: strPtr("ING-SIS"), Semester: strPtr("2026-1"),
	})
	beto := testutil.SeedUser(t, db, userModel.UserModel{
		Code: "A002", PasswordHash: "x", MaxSessions: 1, IsActive: true,
		AcademicPlan: strPtr("ARQ"), Semester: strPtr("2026-1"),
	})
	testutil.SeedUser(t, db, userModel.UserModel{Code: "A003", PasswordHash: "x", MaxSessions: 1, IsActive: true})
	gone := testutil.SeedUser(t, db, userModel.UserModel{Code: "Z999", PasswordHash: "x", MaxSessions: 1, IsActive: true})
	if err := db.Model(&userModel.UserModel{}).Where("id = ?", gone.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	seed := func(userID, machineID int64, start time.Time, status sessionModel.SessionStatus) {
		s := sessionModel.SessionModel{
			UserID: userID, MachineID: machineID,
			AuthMode: sessionModel.AuthModeCentral, Status: status, StartAt: start,
		}
		if status != sessionModel.SessionStatusActive {
			end := start.Add(time.Hour)
			s.EndAt = &end
		}
		if err := db.Create(&s).Error; err != nil {
			t.Fatalf("seed session: %v", err)
		}
	}
	seed(ana.ID, pc1.ID, base, sessionModel.SessionStatusClosed)
	seed(ana.ID, pc1.ID, base.Add(24*time.Hour), sessionModel.SessionStatusClosed)
	seed(ana.ID, pc2.ID, base.Add(48*time.Hour), sessionModel.SessionStatusActive)
	seed(beto.ID, pc2.ID, base.Add(time.Hour), sessionModel.SessionStatusForced)
	seed(gone.ID, pc1.ID, base.Add(2*time.Hour), sessionModel.SessionStatusClosed)

	return &reportFixture{db: db, svc: svc}
}

func at(t time.Time) *time.Time { return &t }

func TestUsage_Filters(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	cases := []struct {
		name          string
		filter        dto.UsageFilter
		total, active int64
	}{
		{"all", dto.UsageFilter{}, 5, 1},
		{"from", dto.UsageFilter{From: at(base.Add(24 * time.Hour))}, 2, 1},
		{"to", dto.UsageFilter{To: at(base.Add(time.Hour))}, 2, 0},
		{"user", dto.UsageFilter{UserCode: "A001"}, 3, 1},
		{"plan", dto.UsageFilter{Plan: "ARQ"}, 1, 0},
		{"semester", dto.UsageFilter{Semester: "2026-1"}, 4, 1},
		{"campus and lab", dto.UsageFilter{Campus: "SEDE_CENTRAL", Lab: "LAB-1"}, 5, 1},
		{"unknown lab", dto.UsageFilter{Lab: "LAB-9"}, 0, 0},
	}
	for _, tc := range cases {
		rep, err := f.svc.Usage(ctx, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if rep.TotalSessions != tc.total || rep.ActiveSessions != tc.active {
			t.Fatalf("%s: expected %d/%d, got %d/%d", tc.name, tc.total, tc.active, rep.TotalSessions, rep.ActiveSessions)
		}
		if !rep.GeneratedAt.Equal(base.Add(72 * time.Hour)) {
			t.Fatalf("%s: unexpected generated_at %v", tc.name, rep.GeneratedAt)
		}
	}
}

func TestAttendance_CountsActiveUsersIncludingZero(t *testing.T) {
	f := newReportFixture(t)

	rep, err := f.svc.Attendance(context.Background(), dto.AttendanceFilter{})
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	want := []dto.AttendanceRow{
		{UserCode: "A001", FullName: "A001", Sessions: 3},
		{UserCode: "A002", FullName: "A002", Sessions: 1},
		{UserCode: "A003", FullName: "A003", Sessions: 0},
	}
	if len(rep.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), rep.Rows)
	}
	for i := range want {
		if rep.Rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rep.Rows[i])
		}
	}
}

func TestAttendance_WindowKeepsUsersWithoutSessions(t *testing.T) {
	f := newReportFixture(t)

	rep, err := f.svc.Attendance(context.Background(), dto.AttendanceFilter{
		From:     at(base.Add(12 * time.Hour)),
		To:       at(base.Add(36 * time.Hour)),
		Semester: "2026-1",
	})
	if err != nil {
		t.Fatalf("attendance: %v", err)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rep.Rows)
	}
	if rep.Rows[0].UserCode != "A001" || rep.Rows[0].Sessions != 1 {
		t.Fatalf("unexpected first row %+v", rep.Rows[0])
	}
	if rep.Rows[1].UserCode != "A002" || rep.Rows[1].Sessions != 0 {
		t.Fatalf("unexpected second row %+v", rep.Rows[1])
	}
}

func TestQueryToFilter(t *testing.T) {
	q := dto.UsageQuery{From: "2026-03-02T10:00:00+02:00", Lab: " LAB-1 "}
	got := q.ToFilter()
	if got.From == nil || !got.From.Equal(base) || got.From.Location() != time.UTC {
		t.Fatalf("expected from normalized to UTC, got %v", got.From)
	}
	if got.To != nil || got.Lab != "LAB-1" {
		t.Fatalf("unexpected filter %+v", got)
	}
	for _, f := range []string{"", "json", " JSON "} {
		if !dto.WantsJSON(f) {
			t.Fatalf("expected %q to mean json", f)
		}
	}
	if dto.WantsJSON("xlsx") {
		t.Fatalf("expected xlsx to be rejected")
	}
}
