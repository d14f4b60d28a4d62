package seeds

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"loginuv_backend/internals/constants"
	campusModel "loginuv_backend/internals/features/campuses/campus/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	userModel "loginuv_backend/internals/features/users/account/model"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

const (
	seedLabCode   = "LAB-1"
	seedLabName   = "Laboratorio 1"
	seedHostname  = "PC-001"
	seedAdminCode = "admin"
	seedAdminName = "Administrador LoginUV"
)

// RunAllSeeds creates the bootstrap campus, lab, machine and admin account.
// Existing rows are left as they are, so it is safe on every start.
func RunAllSeeds(ctx context.Context, db *gorm.DB, hasher PasswordHasher, adminPassword string, log *zap.Logger) error {
	log = log.Named("seed")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campus := campusModel.CampusModel{Code: campusModel.MainCampusCode}
		if err := firstOrCreate(tx, log, &campus, "code = ?", []any{campus.Code}, func() {
			campus.Name = campusModel.MainCampusName
			campus.IsMain = true
		}); err != nil {
			return err
		}

		lab := campusModel.LabModel{CampusID: campus.ID, Code: seedLabCode}
		if err := firstOrCreate(tx, log, &lab, "campus_id = ? AND code = ?", []any{campus.ID, lab.Code}, func() {
			lab.Name = seedLabName
		}); err != nil {
			return err
		}

		machine := machineModel.MachineModel{Hostname: seedHostname}
		if err := firstOrCreate(tx, log, &machine, "hostname = ?", []any{machine.Hostname}, func() {
			machine.CampusID = campus.ID
			machine.LabID = lab.ID
			machine.OSType = machineModel.OSWindows
			machine.Status = machineModel.MachineStatusFree
			machine.IsActive = true
		}); err != nil {
			return err
		}

		var hashErr error
		admin := userModel.UserModel{Code: seedAdminCode}
		if err := firstOrCreate(tx, log, &admin, "code = ?", []any{admin.Code}, func() {
			admin.FullName = seedAdminName
			admin.Role = constants.RoleAdmin
			admin.AllowMultiSession = true
			admin.MaxSessions = 5
			admin.IsActive = true
			admin.Source = constants.SourceLocal
			admin.PasswordHash, hashErr = hasher.Hash(adminPassword)
		}); err != nil {
			return err
		}
		return hashErr
	})
}

// firstOrCreate loads dst by where/args or, when absent, fills it via fill and inserts it.
func firstOrCreate(tx *gorm.DB, log *zap.Logger, dst any, where string, args []any, fill func()) error {
	res := tx.Where(where, args...).Limit(1).Find(dst)
	if res.Error != nil {
		return fmt.Errorf("seed lookup %T: %w", dst, res.Error)
	}
	if res.RowsAffected > 0 {
		log.Info("ℹ️ sudah ada, dilewati", zap.String("model", fmt.Sprintf("%T", dst)))
		return nil
	}
	fill()
	if err := tx.Create(dst).Error; err != nil {
		return fmt.Errorf("seed create %T: %w", dst, err)
	}
	log.Info("✅ berhasil insert", zap.String("model", fmt.Sprintf("%T", dst)))
	return nil
}
