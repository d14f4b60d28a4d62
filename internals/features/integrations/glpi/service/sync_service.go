// internals/features/integrations/glpi/service/sync_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"loginuv_backend/internals/configs"
	"loginuv_backend/internals/constants"
	campusModel "loginuv_backend/internals/features/campuses/campus/model"
	"loginuv_backend/internals/features/integrations/glpi/client"
	"loginuv_backend/internals/features/integrations/glpi/lock"
	syncModel "loginuv_backend/internals/features/integrations/glpi/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	userModel "loginuv_backend/internals/features/users/account/model"
	helpersAuth "loginuv_backend/internals/helpers/auth"
)

var (
	ErrSyncAlreadyRunning = errors.New("a GLPI sync is already running")
	ErrRunNotFound        = errors.New("GLPI sync run not found")
)

// Remote is the subset of the GLPI REST API the sync needs.
type Remote interface {
	InitSession(ctx context.Context) (string, error)
	KillSession(ctx context.Context, sessionToken string) error
	ListUsers(ctx context.Context, sessionToken string) ([]client.Record, error)
	ListComputers(ctx context.Context, sessionToken string) ([]client.Record, error)
}

// RemoteFactory builds a Remote per run so configuration problems surface as a failed run.
type RemoteFactory func() (Remote, error)

func ClientFactory(cfg configs.GLPIConfig, log *zap.Logger, opts ...client.Option) RemoteFactory {
	return func() (Remote, error) {
		c, err := client.New(cfg, log, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// Counts is persisted as the run summary.
type Counts struct {
	UsersCreated     int
	UsersUpdated     int
	UsersDisabled    int
	MachinesCreated  int
	MachinesUpdated  int
	MachinesDisabled int
	Skipped          int
}

func (c Counts) Summary() datatypes.JSONMap {
	return datatypes.JSONMap{
		"users_created":     c.UsersCreated,
		"users_updated":     c.UsersUpdated,
		"users_disabled":    c.UsersDisabled,
		"machines_created":  c.MachinesCreated,
		"machines_updated":  c.MachinesUpdated,
		"machines_disabled": c.MachinesDisabled,
		"skipped":           c.Skipped,
	}
}

// remoteError marks failures that came from GLPI rather than from our side.
type remoteError struct{ err error }

func (e *remoteError) Error() string { return e.err.Error() }
func (e *remoteError) Unwrap() error { return e.err }

const (
	defaultStaleAfter = time.Hour
	killTimeout       = 10 * time.Second
)

/* =========================================================
   SYNC SERVICE
========================================================= */

type SyncService struct {
	db         *gorm.DB
	remote     RemoteFactory
	lease      lock.RunLock
	hasher     PasswordHasher
	runTimeout time.Duration
	staleAfter time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewSyncService wires the reconciliation engine. A nil lease falls back to an in-process one.
func NewSyncService(db *gorm.DB, remote RemoteFactory, lease lock.RunLock, hasher PasswordHasher, runTimeout time.Duration, log *zap.Logger) *SyncService {
	if lease == nil {
		lease = lock.NewLocalRunLock()
	}
	staleAfter := defaultStaleAfter
	if runTimeout > 0 && 2*runTimeout > staleAfter {
		staleAfter = 2 * runTimeout
	}
	return &SyncService{
		db:         db,
		remote:     remote,
		lease:      lease,
		hasher:     hasher,
		runTimeout: runTimeout,
		staleAfter: staleAfter,
		log:        log.Named("glpi-sync"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Trigger runs one reconciliation inline and returns the finished run.
// Only one run may be in flight; a second trigger gets ErrSyncAlreadyRunning.
func (s *SyncService) Trigger(ctx context.Context, mode syncModel.RunType) (*syncModel.SyncRunModel, error) {
	release, ok, err := s.lease.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSyncAlreadyRunning
	}
	defer release()

	run, err := s.open(ctx, mode)
	if err != nil {
		return nil, err
	}

	status, summary := s.execute(ctx)

	ended := s.now()
	run.Status = status
	run.Summary = summary
	run.EndedAt = &ended
	// the outcome is recorded even if the caller went away mid-run
	err = s.db.WithContext(context.WithoutCancel(ctx)).
		Model(&syncModel.SyncRunModel{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{"status": status, "summary": summary, "ended_at": ended}).Error
	if err != nil {
		return nil, fmt.Errorf("record sync outcome: %w", err)
	}

	s.log.Info("GLPI sync selesai",
		zap.Int64("run_id", run.ID),
		zap.String("mode", string(mode)),
		zap.String("status", string(status)),
		zap.Duration("took", ended.Sub(run.StartedAt)),
	)
	return run, nil
}

// open abandons stale processing rows, refuses when a live one remains and inserts the new run.
func (s *SyncService) open(ctx context.Context, mode syncModel.RunType) (*syncModel.SyncRunModel, error) {
	now := s.now()
	run := syncModel.SyncRunModel{
		RunType:   mode,
		Status:    syncModel.RunStatusProcessing,
		StartedAt: now,
		Summary:   datatypes.JSONMap{},
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&syncModel.SyncRunModel{}).
			Where("status = ? AND started_at < ?", syncModel.RunStatusProcessing, now.Add(-s.staleAfter)).
			Updates(map[string]any{
				"status":   syncModel.RunStatusFailed,
				"summary":  datatypes.JSONMap{"error": "abandoned: no outcome recorded"},
				"ended_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("abandon stale runs: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			s.log.Warn("run GLPI tanpa hasil ditandai gagal", zap.Int64("runs", res.RowsAffected))
		}

		var live int64
		if err := tx.Model(&syncModel.SyncRunModel{}).
			Where("status = ?", syncModel.RunStatusProcessing).
			Count(&live).Error; err != nil {
			return fmt.Errorf("count processing runs: %w", err)
		}
		if live > 0 {
			return ErrSyncAlreadyRunning
		}
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("create sync run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SyncService) execute(ctx context.Context) (status syncModel.RunStatus, summary datatypes.JSONMap) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("[PANIC] GLPI sync", zap.Any("panic", r), zap.Stack("stack"))
			status = syncModel.RunStatusFailed
			summary = datatypes.JSONMap{"error": fmt.Sprintf("Unexpected sync error: %v", r)}
		}
	}()

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	counts, err := s.reconcile(ctx)
	if err != nil {
		var re *remoteError
		if errors.As(err, &re) {
			s.log.Warn("GLPI sync gagal", zap.Error(err))
			return syncModel.RunStatusFailed, datatypes.JSONMap{"error": re.Error()}
		}
		s.log.Error("GLPI sync error tak terduga", zap.Error(err))
		return syncModel.RunStatusFailed, datatypes.JSONMap{"error": "Unexpected sync error: " + err.Error()}
	}

	if counts.Skipped > 0 {
		return syncModel.RunStatusPartial, counts.Summary()
	}
	return syncModel.RunStatusSuccess, counts.Summary()
}

// reconcile pulls both snapshots first, then applies them in one transaction.
func (s *SyncService) reconcile(ctx context.Context) (Counts, error) {
	var counts Counts

	remote, err := s.remote()
	if err != nil {
		return counts, &remoteError{err}
	}
	token, err := remote.InitSession(ctx)
	if err != nil {
		return counts, &remoteError{err}
	}
	defer func() {
		kctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
		defer cancel()
		if err := remote.KillSession(kctx, token); err != nil {
			s.log.Debug("killSession gagal, diabaikan", zap.Error(err))
		}
	}()

	users, err := remote.ListUsers(ctx, token)
	if err != nil {
		return counts, &remoteError{err}
	}
	computers, err := remote.ListComputers(ctx, token)
	if err != nil {
		return counts, &remoteError{err}
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyUsers(tx, users, &counts, now); err != nil {
			return err
		}
		return s.applyMachines(tx, computers, &counts, now)
	})
	return counts, err
}

/* =========================================================
   USERS
========================================================= */

func (s *SyncService) applyUsers(tx *gorm.DB, items []client.Record, counts *Counts, now time.Time) error {
	seen := make([]string, 0, len(items))

	for _, item := range items {
		externalID := item.String("id")
		code := item.String("name")
		if externalID == "" || code == "" {
			counts.Skipped++
			continue
		}
		seen = append(seen, externalID)

		fullName := joinName(item.String("firstname"), item.String("realname"))
		if fullName == "" {
			fullName = code
		}
		role := item.String("role")
		if role == "" {
			role = item.String("profile")
		}

		var user userModel.UserModel
		res := tx.Where("code = ?", code).Limit(1).Find(&user)
		if res.Error != nil {
			return fmt.Errorf("find user %s: %w", code, res.Error)
		}
		isNew := res.RowsAffected == 0

		user.FullName = fullName
		user.Email = optional(item.String("email"))
		user.Role = normalizeRole(role)
		user.AcademicPlan = optional(item.String("academic_plan"))
		user.Semester = optional(item.String("semester"))
		user.IsActive = parseActive(item.String("is_active"))
		user.Source = constants.SourceGLPI
		user.GLPIExternalID = optional(externalID)
		user.UpdatedAt = now

		if isNew {
			hash, err := s.hasher.Hash(helpersAuth.RandomSecret())
			if err != nil {
				return fmt.Errorf("hash random password: %w", err)
			}
			user.Code = code
			user.PasswordHash = hash
			user.AllowMultiSession = false
			user.MaxSessions = 1
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", code, err)
			}
			counts.UsersCreated++
			continue
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("update user %s: %w", code, err)
		}
		counts.UsersUpdated++
	}

	// an empty snapshot never disables anyone
	if len(seen) == 0 {
		return nil
	}
	res := tx.Model(&userModel.UserModel{}).
		Where("source = ? AND is_active = ? AND glpi_external_id IS NOT NULL AND glpi_external_id NOT IN ?",
			constants.SourceGLPI, true, seen).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("disable removed users: %w", res.Error)
	}
	counts.UsersDisabled = int(res.RowsAffected)
	return nil
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

/* =========================================================
   MACHINES
========================================================= */

func (s *SyncService) applyMachines(tx *gorm.DB, items []client.Record, counts *Counts, now time.Time) error {
	seen := make([]string, 0, len(items))
	var home *campusModel.LabModel

	for _, item := range items {
		externalID := item.String("id")
		hostname := item.String("name")
		if externalID == "" || hostname == "" {
			counts.Skipped++
			continue
		}
		seen = append(seen, externalID)

		assetTag := optional(item.String("serial"))
		osType := inferOSType(hostname, item.String("operatingsystem"))

		var machine machineModel.MachineModel
		res := tx.Where("hostname = ?", hostname).Limit(1).Find(&machine)
		if res.Error != nil {
			return fmt.Errorf("find machine %s: %w", hostname, res.Error)
		}

		if res.RowsAffected > 0 {
			// status belongs to the occupancy tracker
			err := tx.Model(&machineModel.MachineModel{}).
				Where("id = ?", machine.ID).
				Updates(map[string]any{
					"asset_tag":        assetTag,
					"os_type":          osType,
					"glpi_external_id": externalID,
					"is_active":        true,
					"updated_at":       now,
				}).Error
			if err != nil {
				return fmt.Errorf("update machine %s: %w", hostname, err)
			}
			counts.MachinesUpdated++
			continue
		}

		if home == nil {
			lab, err := resolveDefaultLab(tx)
			if err != nil {
				return err
			}
			home = lab
		}
		machine = machineModel.MachineModel{
			CampusID:       home.CampusID,
			LabID:          home.ID,
			Hostname:       hostname,
			AssetTag:       assetTag,
			OSType:         osType,
			Status:         machineModel.MachineStatusFree,
			GLPIExternalID: optional(externalID),
			IsActive:       true,
		}
		if err := tx.Create(&machine).Error; err != nil {
			return fmt.Errorf("create machine %s: %w", hostname, err)
		}
		counts.MachinesCreated++
	}

	if len(seen) == 0 {
		return nil
	}
	res := tx.Model(&machineModel.MachineModel{}).
		Where("is_active = ? AND glpi_external_id IS NOT NULL AND glpi_external_id NOT IN ?", true, seen).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("disable removed machines: %w", res.Error)
	}
	counts.MachinesDisabled = int(res.RowsAffected)
	return nil
}

// resolveDefaultLab returns the first lab of the main campus, creating
// SEDE_CENTRAL / LAB-GLPI when they do not exist yet.
func resolveDefaultLab(tx *gorm.DB) (*campusModel.LabModel, error) {
	var campus campusModel.CampusModel
	res := tx.Where("is_main = ?", true).Order("id ASC").Limit(1).Find(&campus)
	if res.Error != nil {
		return nil, fmt.Errorf("find main campus: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		campus = campusModel.CampusModel{
			Code:   campusModel.MainCampusCode,
			Name:   campusModel.MainCampusName,
			IsMain: true,
		}
		if err := tx.Create(&campus).Error; err != nil {
			return nil, fmt.Errorf("create main campus: %w", err)
		}
	}

	var lab campusModel.LabModel
	res = tx.Where("campus_id = ?", campus.ID).Order("id ASC").Limit(1).Find(&lab)
	if res.Error != nil {
		return nil, fmt.Errorf("find default lab: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		lab = campusModel.LabModel{
			CampusID: campus.ID,
			Code:     campusModel.GLPILabCode,
			Name:     campusModel.GLPILabName,
		}
		if err := tx.Create(&lab).Error; err != nil {
			return nil, fmt.Errorf("create default lab: %w", err)
		}
	}
	return &lab, nil
}

/* =========================================================
   READS
========================================================= */

// List returns the newest runs first.
func (s *SyncService) List(ctx context.Context, limit int) ([]syncModel.SyncRunModel, error) {
	var rows []syncModel.SyncRunModel
	if err := s.db.WithContext(ctx).
		Order("started_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	return rows, nil
}

func (s *SyncService) Get(ctx context.Context, id int64) (*syncModel.SyncRunModel, error) {
	var run syncModel.SyncRunModel
	err := s.db.WithContext(ctx).First(&run, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync run: %w", err)
	}
	return &run, nil
}
