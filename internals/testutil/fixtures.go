package testutil

import (
	"testing"

	"gorm.io/gorm"

	campusModel "loginuv_backend/internals/features/campuses/campus/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	userModel "loginuv_backend/internals/features/users/account/model"
)

type Lab struct {
	Campus campusModel.CampusModel
	Lab    campusModel.LabModel
}

// SeedLab creates campus SEDE_CENTRAL with lab LAB-1.
func SeedLab(t testing.TB, db *gorm.DB) Lab {
	t.Helper()
	c := campusModel.CampusModel{Code: campusModel.MainCampusCode, Name: campusModel.MainCampusName, IsMain: true}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed campus: %v", err)
	}
	l := campusModel.LabModel{CampusID: c.ID, Code: "LAB-1", Name: "Laboratorio 1"}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("seed lab: %v", err)
	}
	return Lab{Campus: c, Lab: l}
}

func SeedMachine(t testing.TB, db *gorm.DB, at Lab, hostname string) machineModel.MachineModel {
	t.Helper()
	m := machineModel.MachineModel{
		CampusID: at.Campus.ID,
		LabID:    at.Lab.ID,
		Hostname: hostname,
		OSType:   machineModel.OSWindows,
		Status:   machineModel.MachineStatusFree,
		IsActive: true,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed machine %s: %v", hostname, err)
	}
	return m
}

// SeedUser stores u as given; PasswordHash must already be set by the caller.
func SeedUser(t testing.TB, db *gorm.DB, u userModel.UserModel) userModel.UserModel {
	t.Helper()
	if u.Role == "" {
		u.Role = "student"
	}
	if u.Source == "" {
		u.Source = "local"
	}
	if u.FullName == "" {
		u.FullName = u.Code
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", u.Code, err)
	}
	return u
}
