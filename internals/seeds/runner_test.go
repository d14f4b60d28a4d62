package seeds

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	campusModel "loginuv_backend/internals/features/campuses/campus/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	userModel "loginuv_backend/internals/features/users/account/model"
	helpersAuth "loginuv_backend/internals/helpers/auth"
	"loginuv_backend/internals/testutil"
)

func TestRunAllSeeds_Idempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	hasher := helpersAuth.NewPasswordHasher(bcrypt.MinCost)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := RunAllSeeds(ctx, db, hasher, "Admin123*", zaptest.NewLogger(t)); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var campuses, labs, machines, users int64
	db.Model(&campusModel.CampusModel{}).Count(&campuses)
	db.Model(&campusModel.LabModel{}).Count(&labs)
	db.Model(&machineModel.MachineModel{}).Count(&machines)
	db.Model(&userModel.UserModel{}).Count(&users)
	if campuses != 1 || labs != 1 || machines != 1 || users != 1 {
		t.Fatalf("expected one of each, got campuses=%d labs=%d machines=%d users=%d", campuses, labs, machines, users)
	}

	var admin userModel.UserModel
	db.Where("code = ?", "admin").First(&admin)
	if admin.Role != "admin" || !admin.AllowMultiSession || admin.MaxSessions != 5 || !admin.IsActive {
		t.Fatalf("unexpected admin %+v", admin)
	}
	if !hasher.Verify("Admin123*", admin.PasswordHash) {
		t.Fatalf("expected seeded password to verify")
	}

	var pc machineModel.MachineModel
	db.Where("hostname = ?", "PC-001").First(&pc)
	if pc.OSType != machineModel.OSWindows || pc.Status != machineModel.MachineStatusFree || !pc.IsActive {
		t.Fatalf("unexpected PC-001 %+v", pc)
	}
}
