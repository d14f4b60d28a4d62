package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"loginuv_backend/internals/constants"
	eventModel "loginuv_backend/internals/features/events/event/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	occupancy "loginuv_backend/internals/features/machines/occupancy/service"
	"loginuv_backend/internals/features/sessions/session/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	userModel "loginuv_backend/internals/features/users/account/model"
	helpersAuth "loginuv_backend/internals/helpers/auth"
	"loginuv_backend/internals/testutil"
)

type fakeIssuer struct {
	mu     sync.Mutex
	err    error
	issued []int64
}

func (f *fakeIssuer) Issue(userCode string, sessionID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, sessionID)
	return "token-" + userCode, nil
}

func (f *fakeIssuer) TTL() time.Duration { return 15 * time.Minute }

type fixture struct {
	db      *gorm.DB
	svc     *AdmissionService
	issuer  *fakeIssuer
	hasher  *helpersAuth.PasswordHasher
	lab     testutil.Lab
	pc1     machineModel.MachineModel
	pc2     machineModel.MachineModel
	admin   userModel.UserModel
	student userModel.UserModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	log := zaptest.NewLogger(t)
	hasher := helpersAuth.NewPasswordHasher(bcrypt.MinCost)
	issuer := &fakeIssuer{}

	f := &fixture{
		db:     db,
		svc:    NewAdmissionService(db, hasher, issuer, occupancy.NewTracker(log), log),
		issuer: issuer,
		hasher: hasher,
		lab:    testutil.SeedLab(t, db),
	}
	f.pc1 = testutil.SeedMachine(t, db, f.lab, "PC-001")
	f.pc2 = testutil.SeedMachine(t, db, f.lab, "PC-002")
	f.admin = f.user(t, "admin", constants.RoleAdmin, false, 1)
	f.student = f.user(t, "A001", constants.RoleStudent, true, 3)
	return f
}

func (f *fixture) user(t *testing.T, code, role string, multi bool, max int) userModel.UserModel {
	t.Helper()
	hash, err := f.hasher.Hash("secret-" + code)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return testutil.SeedUser(t, f.db, userModel.UserModel{
		Code:              code,
		Role:              role,
		PasswordHash:      hash,
		AllowMultiSession: multi,
		MaxSessions:       max,
		IsActive:          true,
	})
}

func (f *fixture) login(code, hostname string) (*dto.LoginResponse, error) {
	return f.svc.Login(context.Background(), dto.LoginRequest{
		UserCode:   code,
		Password:   "secret-" + code,
		Hostname:   hostname,
		CampusCode: f.lab.Campus.Code,
		LabCode:    f.lab.Lab.Code,
	})
}

func (f *fixture) machineStatus(t *testing.T, id int64) machineModel.MachineStatus {
	t.Helper()
	var m machineModel.MachineModel
	if err := f.db.First(&m, id).Error; err != nil {
		t.Fatalf("load machine: %v", err)
	}
	return m.Status
}

func (f *fixture) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&eventModel.EventModel{}).Where("event_type = ?", eventType).Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func (f *fixture) activeSessions(t *testing.T, userID int64) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&sessionModel.SessionModel{}).
		Where("user_id = ? AND status = ?", userID, sessionModel.SessionStatusActive).
		Count(&n).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return n
}

func TestLogin_Admitted(t *testing.T) {
	f := newFixture(t)

	res, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("expected login ok, got %v", err)
	}
	if res.TokenType != "bearer" || res.ExpiresIn != 900 || res.AccessToken != "token-admin" {
		t.Fatalf("unexpected token fields %+v", res)
	}
	if res.Session.UserCode != "admin" || res.Session.Machine != "PC-001" || res.Session.AuthMode != "central" || res.Session.Role != "admin" {
		t.Fatalf("unexpected session info %+v", res.Session)
	}
	if got := f.machineStatus(t, f.pc1.ID); got != machineModel.MachineStatusOccupied {
		t.Fatalf("expected PC-001 occupied, got %s", got)
	}

	var ev eventModel.EventModel
	if err := f.db.Where("event_type = ?", constants.EventLoginOK).First(&ev).Error; err != nil {
		t.Fatalf("expected LOGIN_OK event: %v", err)
	}
	if ev.Payload["hostname"] != "PC-001" {
		t.Fatalf("expected hostname payload, got %v", ev.Payload)
	}
	if ev.SessionID == nil || *ev.SessionID != res.Session.ID {
		t.Fatalf("expected event bound to session %d, got %v", res.Session.ID, ev.SessionID)
	}
	if ev.UserID == nil || *ev.UserID != f.admin.ID || ev.LabID == nil || *ev.LabID != f.lab.Lab.ID {
		t.Fatalf("expected user and lab context on event, got %+v", ev)
	}
}

func TestLogin_Rejections(t *testing.T) {
	f := newFixture(t)
	inactive := f.user(t, "Z999", constants.RoleStudent, false, 1)
	if err := f.db.Model(&inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := f.db.Model(&f.pc2).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate machine: %v", err)
	}

	cases := []struct {
		name string
		req  dto.LoginRequest
		want error
	}{
		{"unknown user", dto.LoginRequest{UserCode: "nobody", Password: "x", Hostname: "PC-001", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-1"}, ErrInvalidCredentials},
		{"wrong password", dto.LoginRequest{UserCode: "admin", Password: "nope", Hostname: "PC-001", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-1"}, ErrInvalidCredentials},
		{"inactive user", dto.LoginRequest{UserCode: "Z999", Password: "secret-Z999", Hostname: "PC-001", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-1"}, ErrInvalidCredentials},
		{"unknown host", dto.LoginRequest{UserCode: "admin", Password: "secret-admin", Hostname: "PC-404", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-1"}, ErrMachineNotRegistered},
		{"wrong lab", dto.LoginRequest{UserCode: "admin", Password: "secret-admin", Hostname: "PC-001", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-9"}, ErrMachineNotRegistered},
		{"wrong campus", dto.LoginRequest{UserCode: "admin", Password: "secret-admin", Hostname: "PC-001", CampusCode: "NORTE", LabCode: "LAB-1"}, ErrMachineNotRegistered},
		{"inactive machine", dto.LoginRequest{UserCode: "admin", Password: "secret-admin", Hostname: "PC-002", CampusCode: "SEDE_CENTRAL", LabCode: "LAB-1"}, ErrMachineNotRegistered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Login(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if n := f.countEvents(t, constants.EventLoginOK); n != 0 {
		t.Fatalf("expected no LOGIN_OK after rejections, got %d", n)
	}
}

func TestLogin_SingleSessionScenario(t *testing.T) {
	f := newFixture(t)

	first, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := f.login("admin", "PC-002"); !errors.Is(err, ErrSessionLimitReached) {
		t.Fatalf("expected ErrSessionLimitReached, got %v", err)
	}
	if got := f.machineStatus(t, f.pc2.ID); got != machineModel.MachineStatusFree {
		t.Fatalf("expected PC-002 untouched by rejected login, got %s", got)
	}

	if err := f.svc.Logout(context.Background(), first.Session.ID, sessionModel.CloseReasonLogout); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := f.machineStatus(t, f.pc1.ID); got != machineModel.MachineStatusFree {
		t.Fatalf("expected PC-001 free after logout, got %s", got)
	}

	if _, err := f.login("admin", "PC-002"); err != nil {
		t.Fatalf("expected second login after logout, got %v", err)
	}
	if got := f.machineStatus(t, f.pc2.ID); got != machineModel.MachineStatusOccupied {
		t.Fatalf("expected PC-002 occupied, got %s", got)
	}
}

// Attempts share one service, so the per-user mutex serializes them. The
// sqlite test DB has a single connection, which means the FOR UPDATE row
// lock is never contended here; TestLogin_SeparateInstancesLockUserRow
// covers the cross-instance path.
func TestLogin_ConcurrentAttemptsRespectLimit(t *testing.T) {
	f := newFixture(t)
	limit := int(f.student.MaxSessions)

	const attempts = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		host := "PC-001"
		if i%2 == 1 {
			host = "PC-002"
		}
		go func(host string) {
			defer wg.Done()
			_, err := f.login("A001", host)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrSessionLimitReached):
				rejected++
			default:
				other = append(other, err)
			}
		}(host)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if admitted != limit || rejected != attempts-limit {
		t.Fatalf("expected %d admitted / %d rejected, got %d / %d", limit, attempts-limit, admitted, rejected)
	}
	if n := f.activeSessions(t, f.student.ID); n != int64(limit) {
		t.Fatalf("expected %d active sessions, got %d", limit, n)
	}
	if f.svc.locks.size() != 0 {
		t.Fatalf("expected user locks released, got %d entries", f.svc.locks.size())
	}
}

// Each attempt goes through its own service, as separate processes would,
// so the in-process mutex never sees the others. The limit then rests on the
// user row lock taken inside the login transaction.
func TestLogin_SeparateInstancesLockUserRow(t *testing.T) {
	f := newFixture(t)
	limit := int(f.student.MaxSessions)

	var (
		recMu      sync.Mutex
		userLocked int
	)
	if err := f.db.Callback().Query().After("gorm:query").Register("test:user_row_lock", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses["FOR"]; ok && d.Statement.Table == "users" {
			recMu.Lock()
			userLocked++
			recMu.Unlock()
		}
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
		other    []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log := zaptest.NewLogger(t)
			svc := NewAdmissionService(f.db, f.hasher, f.issuer, occupancy.NewTracker(log), log)
			_, err := svc.Login(context.Background(), dto.LoginRequest{
				UserCode:   "A001",
				Password:   "secret-A001",
				Hostname:   "PC-001",
				CampusCode: f.lab.Campus.Code,
				LabCode:    f.lab.Lab.Code,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, ErrSessionLimitReached):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if admitted != limit || rejected != attempts-limit {
		t.Fatalf("expected %d admitted / %d rejected, got %d / %d", limit, attempts-limit, admitted, rejected)
	}
	if userLocked != attempts {
		t.Fatalf("expected every attempt to lock the user row, got %d of %d", userLocked, attempts)
	}
}

func TestLogin_IssuerFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.issuer.err = errors.New("signer offline")

	if _, err := f.login("admin", "PC-001"); err == nil {
		t.Fatalf("expected error when token issuance fails")
	}
	if n := f.activeSessions(t, f.admin.ID); n != 0 {
		t.Fatalf("expected no session persisted, got %d", n)
	}
	if got := f.machineStatus(t, f.pc1.ID); got != machineModel.MachineStatusFree {
		t.Fatalf("expected PC-001 still free, got %s", got)
	}
	if n := f.countEvents(t, constants.EventLoginOK); n != 0 {
		t.Fatalf("expected no LOGIN_OK event, got %d", n)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(t)
	res, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.Logout(context.Background(), res.Session.ID, sessionModel.CloseReasonShutdown); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if err := f.svc.Logout(context.Background(), 98765, ""); err != nil {
		t.Fatalf("expected unknown session to succeed, got %v", err)
	}

	if n := f.countEvents(t, constants.EventLogout); n != 1 {
		t.Fatalf("expected exactly one LOGOUT event, got %d", n)
	}
	var sess sessionModel.SessionModel
	if err := f.db.First(&sess, res.Session.ID).Error; err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.Status != sessionModel.SessionStatusClosed || sess.EndAt == nil {
		t.Fatalf("expected closed session with end_at, got %+v", sess)
	}
	if sess.CloseReason == nil || *sess.CloseReason != sessionModel.CloseReasonShutdown {
		t.Fatalf("expected reason shutdown, got %v", sess.CloseReason)
	}
}

func TestLogout_SharedMachineStaysOccupied(t *testing.T) {
	f := newFixture(t)
	teacher := f.user(t, "T010", constants.RoleTeacher, false, 1)

	a, err := f.login("A001", "PC-001")
	if err != nil {
		t.Fatalf("login A001: %v", err)
	}
	if _, err := f.login(teacher.Code, "PC-001"); err != nil {
		t.Fatalf("login T010: %v", err)
	}
	if err := f.svc.Logout(context.Background(), a.Session.ID, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if got := f.machineStatus(t, f.pc1.ID); got != machineModel.MachineStatusOccupied {
		t.Fatalf("expected PC-001 still occupied, got %s", got)
	}
}

func TestLogout_MissingMachineSkipsEvent(t *testing.T) {
	f := newFixture(t)
	res, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.db.Delete(&machineModel.MachineModel{}, f.pc1.ID).Error; err != nil {
		t.Fatalf("delete machine: %v", err)
	}
	if err := f.svc.Logout(context.Background(), res.Session.ID, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if n := f.countEvents(t, constants.EventLogout); n != 0 {
		t.Fatalf("expected no LOGOUT event without machine, got %d", n)
	}
	if n := f.activeSessions(t, f.admin.ID); n != 0 {
		t.Fatalf("expected session closed, got %d active", n)
	}
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)

	err := f.svc.Heartbeat(context.Background(), dto.HeartbeatRequest{
		Hostname: "PC-404", OSType: "windows", UptimeSeconds: 10, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("expected unknown hostname to be ignored, got %v", err)
	}
	if n := f.countEvents(t, constants.EventHeartbeat); n != 0 {
		t.Fatalf("expected no heartbeat event for unknown host, got %d", n)
	}

	err = f.svc.Heartbeat(context.Background(), dto.HeartbeatRequest{
		Hostname: "PC-001", SessionID: 7, OSType: "windows", UptimeSeconds: 3600, Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	var m machineModel.MachineModel
	f.db.First(&m, f.pc1.ID)
	if m.LastSeenAt == nil || !m.LastSeenAt.Equal(ts) {
		t.Fatalf("expected last_seen_at %s, got %v", ts, m.LastSeenAt)
	}
	if m.Status != machineModel.MachineStatusFree {
		t.Fatalf("expected heartbeat to leave status alone, got %s", m.Status)
	}

	var ev eventModel.EventModel
	if err := f.db.Where("event_type = ?", constants.EventHeartbeat).First(&ev).Error; err != nil {
		t.Fatalf("expected heartbeat event: %v", err)
	}
	if !ev.CreatedAt.Equal(ts) {
		t.Fatalf("expected event timestamp %s, got %s", ts, ev.CreatedAt)
	}
	if ev.Payload["os_type"] != "windows" {
		t.Fatalf("expected os_type payload, got %v", ev.Payload)
	}
	if ev.SessionID == nil || *ev.SessionID != 7 {
		t.Fatalf("expected session id 7, got %v", ev.SessionID)
	}
}

func TestIngestEvents(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	sid := int64(3)

	n, err := f.svc.IngestEvents(context.Background(), dto.BulkEventsRequest{
		Hostname: "PC-002",
		Events: []dto.EventItem{
			{Type: "APP_OPEN", Timestamp: ts, Payload: map[string]any{"app": "code"}},
			{Type: "APP_CLOSE", SessionID: &sid, Timestamp: ts.Add(time.Minute)},
		},
	})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 stored, got %d (%v)", n, err)
	}
	var withMachine int64
	f.db.Model(&eventModel.EventModel{}).Where("machine_id = ? AND campus_id = ?", f.pc2.ID, f.lab.Campus.ID).Count(&withMachine)
	if withMachine != 2 {
		t.Fatalf("expected machine context on both events, got %d", withMachine)
	}

	n, err = f.svc.IngestEvents(context.Background(), dto.BulkEventsRequest{
		Hostname: "GHOST",
		Events:   []dto.EventItem{{Type: "APP_OPEN", Timestamp: ts}},
	})
	if err != nil || n != 1 {
		t.Fatalf("expected unknown host events stored, got %d (%v)", n, err)
	}
	var orphan int64
	f.db.Model(&eventModel.EventModel{}).Where("machine_id IS NULL AND campus_id IS NULL AND lab_id IS NULL").Count(&orphan)
	if orphan != 1 {
		t.Fatalf("expected one event without context, got %d", orphan)
	}
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	stale, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	fresh, err := f.login("A001", "PC-002")
	if err != nil {
		t.Fatalf("login A001: %v", err)
	}

	// PC-002 keeps reporting, PC-001 goes silent.
	f.svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	if err := f.svc.Heartbeat(context.Background(), dto.HeartbeatRequest{
		Hostname: "PC-002", OSType: "debian", Timestamp: base.Add(9 * time.Minute),
	}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	closed, err := f.svc.ExpireStale(context.Background(), 5*time.Minute)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 session expired, got %d", closed)
	}

	var s sessionModel.SessionModel
	if err := f.db.First(&s, stale.Session.ID).Error; err != nil {
		t.Fatalf("load stale session: %v", err)
	}
	if s.Status != sessionModel.SessionStatusClosed || s.CloseReason == nil || *s.CloseReason != sessionModel.CloseReasonTimeout {
		t.Fatalf("expected stale session closed with timeout, got %+v", s)
	}
	var still sessionModel.SessionModel
	if err := f.db.First(&still, fresh.Session.ID).Error; err != nil {
		t.Fatalf("load fresh session: %v", err)
	}
	if still.Status != sessionModel.SessionStatusActive {
		t.Fatalf("expected fresh session active, got %s", still.Status)
	}
	if got := f.machineStatus(t, f.pc1.ID); got != machineModel.MachineStatusFree {
		t.Fatalf("expected PC-001 freed, got %s", got)
	}
}

func TestActiveUser(t *testing.T) {
	f := newFixture(t)
	res, err := f.login("admin", "PC-001")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	u, err := f.svc.ActiveUser(context.Background(), res.Session.ID, "admin")
	if err != nil || u.Code != "admin" {
		t.Fatalf("expected admin, got %v (%v)", u, err)
	}
	if _, err := f.svc.ActiveUser(context.Background(), res.Session.ID, "A001"); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected subject mismatch to fail, got %v", err)
	}
	if err := f.svc.Logout(context.Background(), res.Session.ID, ""); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.ActiveUser(context.Background(), res.Session.ID, "admin"); !errors.Is(err, ErrSessionNotActive) {
		t.Fatalf("expected closed session to fail, got %v", err)
	}
}
