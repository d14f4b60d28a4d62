// internals/features/sessions/session/service/admission_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loginuv_backend/internals/constants"
	eventService "loginuv_backend/internals/features/events/event/service"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	occupancy "loginuv_backend/internals/features/machines/occupancy/service"
	"loginuv_backend/internals/features/sessions/session/dto"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	userModel "loginuv_backend/internals/features/users/account/model"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrMachineNotRegistered = errors.New("machine not registered")
	ErrSessionLimitReached  = errors.New("session limit reached")
	ErrSessionNotActive     = errors.New("session not active")
)

type PasswordVerifier interface {
	Verify(plain, hash string) bool
	Burn(plain string)
}

type CredentialIssuer interface {
	Issue(userCode string, sessionID int64) (string, error)
	TTL() time.Duration
}

/* =========================================================
   ADMISSION SERVICE
========================================================= */

type AdmissionService struct {
	db        *gorm.DB
	passwords PasswordVerifier
	issuer    CredentialIssuer
	tracker   *occupancy.Tracker
	log       *zap.Logger
	locks     *userLocks
	now       func() time.Time
}

func NewAdmissionService(db *gorm.DB, passwords PasswordVerifier, issuer CredentialIssuer, tracker *occupancy.Tracker, log *zap.Logger) *AdmissionService {
	return &AdmissionService{
		db:        db,
		passwords: passwords,
		issuer:    issuer,
		tracker:   tracker,
		log:       log.Named("admission"),
		locks:     newUserLocks(),
		now:       time.Now,
	}
}

// Login admits or rejects a user at a machine. The session, the occupancy
// change and the LOGIN_OK event commit together or not at all.
func (s *AdmissionService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	db := s.db.WithContext(ctx)

	var user userModel.UserModel
	err := db.Where("code = ? AND is_active = ?", req.UserCode, true).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.passwords.Burn(req.Password)
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.passwords.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	var machine machineModel.MachineModel
	err = db.Model(&machineModel.MachineModel{}).
		Select("machines.*").
		Joins("JOIN labs ON labs.id = machines.lab_id").
		Joins("JOIN campuses ON campuses.id = machines.campus_id").
		Where("machines.hostname = ? AND machines.is_active = ? AND labs.code = ? AND campuses.code = ?",
			req.Hostname, true, req.LabCode, req.CampusCode).
		First(&machine).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrMachineNotRegistered
	case err != nil:
		return nil, fmt.Errorf("find machine: %w", err)
	}

	// Count-then-insert must not interleave for the same user.
	unlock := s.locks.Lock(user.ID)
	defer unlock()

	var out *dto.LoginResponse
	err = db.Transaction(func(tx *gorm.DB) error {
		var locked userModel.UserModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND is_active = ?", user.ID, true).
			First(&locked).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("lock user: %w", err)
		}

		var active int64
		if err := tx.Model(&sessionModel.SessionModel{}).
			Where("user_id = ? AND status = ?", locked.ID, sessionModel.SessionStatusActive).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		if int(active) >= locked.EffectiveLimit() {
			return ErrSessionLimitReached
		}

		now := s.now().UTC()
		sess := sessionModel.SessionModel{
			UserID:    locked.ID,
			MachineID: machine.ID,
			AuthMode:  sessionModel.AuthModeCentral,
			Status:    sessionModel.SessionStatusActive,
			StartAt:   now,
		}
		if err := tx.Create(&sess).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if err := s.tracker.Occupy(tx, &machine, now); err != nil {
			return err
		}
		if err := eventService.Append(tx, eventService.Entry{
			Type:    constants.EventLoginOK,
			Context: eventService.ForMachine(&machine).WithUser(locked.ID).WithSession(&sess.ID),
			Payload: map[string]any{"hostname": machine.Hostname},
			At:      now,
		}); err != nil {
			return err
		}

		token, err := s.issuer.Issue(locked.Code, sess.ID)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		out = &dto.LoginResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   int(s.issuer.TTL() / time.Second),
			Session: dto.SessionInfo{
				ID:       sess.ID,
				UserCode: locked.Code,
				FullName: locked.FullName,
				Role:     locked.Role,
				Machine:  machine.Hostname,
				AuthMode: sess.AuthMode,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("login diterima",
		zap.String("user_code", out.Session.UserCode),
		zap.String("hostname", out.Session.Machine),
		zap.Int64("session_id", out.Session.ID),
	)
	return out, nil
}

// Logout closes an active session. Unknown or already closed sessions succeed silently.
func (s *AdmissionService) Logout(ctx context.Context, sessionID int64, reason sessionModel.CloseReason) error {
	if reason == "" {
		reason = sessionModel.CloseReasonLogout
	}
	return s.closeByID(ctx, sessionID, reason)
}

func (s *AdmissionService) closeByID(ctx context.Context, sessionID int64, reason sessionModel.CloseReason) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess sessionModel.SessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", sessionID, sessionModel.SessionStatusActive).
			First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock session: %w", err)
		}
		return s.closeSession(tx, &sess, reason)
	})
}

func (s *AdmissionService) closeSession(tx *gorm.DB, sess *sessionModel.SessionModel, reason sessionModel.CloseReason) error {
	now := s.now().UTC()
	res := tx.Model(&sessionModel.SessionModel{}).
		Where("id = ? AND status = ?", sess.ID, sessionModel.SessionStatusActive).
		Updates(map[string]any{
			"status":       sessionModel.SessionStatusClosed,
			"end_at":       now,
			"close_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("close session %d: %w", sess.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	machine, err := findMachine(tx, "id = ?", sess.MachineID)
	if err != nil {
		return err
	}
	if err := s.tracker.Release(tx, machine, sess.ID, now); err != nil {
		return err
	}
	if machine == nil {
		s.log.Warn("sesi ditutup, mesin sudah tidak ada", zap.Int64("session_id", sess.ID))
		return nil
	}

	s.log.Info("sesi ditutup",
		zap.Int64("session_id", sess.ID),
		zap.String("reason", string(reason)),
	)
	return eventService.Append(tx, eventService.Entry{
		Type:    constants.EventLogout,
		Context: eventService.ForMachine(machine).WithUser(sess.UserID).WithSession(&sess.ID),
		Payload: map[string]any{"reason": string(reason)},
		At:      now,
	})
}

// Heartbeat refreshes last_seen_at for a known hostname. Unknown hostnames are ignored.
func (s *AdmissionService) Heartbeat(ctx context.Context, req dto.HeartbeatRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(tx, "hostname = ?", req.Hostname)
		if err != nil || machine == nil {
			return err
		}
		at := req.Timestamp.UTC()
		if err := s.tracker.Touch(tx, machine, at); err != nil {
			return err
		}
		var sid *int64
		if req.SessionID > 0 {
			sid = &req.SessionID
		}
		return eventService.Append(tx, eventService.Entry{
			Type:    constants.EventHeartbeat,
			Context: eventService.ForMachine(machine).WithSession(sid),
			Payload: map[string]any{"os_type": req.OSType, "uptime_seconds": req.UptimeSeconds},
			At:      at,
		})
	})
}

// IngestEvents stores client-reported events with the machine context when the
// hostname is known. Returns how many items were written.
func (s *AdmissionService) IngestEvents(ctx context.Context, req dto.BulkEventsRequest) (int, error) {
	written := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(tx, "hostname = ?", req.Hostname)
		if err != nil {
			return err
		}
		base := eventService.ForMachine(machine)

		entries := make([]eventService.Entry, 0, len(req.Events))
		for _, item := range req.Events {
			entries = append(entries, eventService.Entry{
				Type:    item.Type,
				Context: base.WithSession(item.SessionID),
				Payload: item.Payload,
				At:      item.Timestamp,
			})
		}
		written = eventService.AppendEach(tx, entries, s.log)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if written < len(req.Events) {
		s.log.Warn("sebagian event bulk gagal disimpan",
			zap.String("hostname", req.Hostname),
			zap.Int("received", len(req.Events)),
			zap.Int("stored", written),
		)
	}
	return written, nil
}

// ExpireStale closes active sessions whose machine has not reported since
// now-timeout. Each session closes in its own transaction.
func (s *AdmissionService) ExpireStale(ctx context.Context, timeout time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-timeout)

	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&sessionModel.SessionModel{}).
		Joins("LEFT JOIN machines ON machines.id = sessions.machine_id").
		Where("sessions.status = ? AND COALESCE(machines.last_seen_at, sessions.start_at) < ?",
			sessionModel.SessionStatusActive, cutoff).
		Order("sessions.id ASC").
		Pluck("sessions.id", &ids).Error; err != nil {
		return 0, fmt.Errorf("find stale sessions: %w", err)
	}

	closed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		if err := s.closeByID(ctx, id, sessionModel.CloseReasonTimeout); err != nil {
			s.log.Error("gagal menutup sesi kadaluarsa", zap.Int64("session_id", id), zap.Error(err))
			continue
		}
		closed++
	}
	return closed, nil
}

// ActiveUser returns the user behind an active session when the token subject matches.
func (s *AdmissionService) ActiveUser(ctx context.Context, sessionID int64, userCode string) (*userModel.UserModel, error) {
	var user userModel.UserModel
	err := s.db.WithContext(ctx).
		Model(&userModel.UserModel{}).
		Select("users.*").
		Joins("JOIN sessions ON sessions.user_id = users.id").
		Where("sessions.id = ? AND sessions.status = ? AND users.code = ? AND users.is_active = ?",
			sessionID, sessionModel.SessionStatusActive, userCode, true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session user: %w", err)
	}
	return &user, nil
}

// findMachine returns nil without error when no row matches.
func findMachine(tx *gorm.DB, query string, args ...any) (*machineModel.MachineModel, error) {
	var m machineModel.MachineModel
	err := tx.Where(query, args...).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find machine: %w", err)
	}
	return &m, nil
}
