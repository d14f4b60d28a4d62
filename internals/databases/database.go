package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"loginuv_backend/internals/configs"
	campusModel "loginuv_backend/internals/features/campuses/campus/model"
	eventModel "loginuv_backend/internals/features/events/event/model"
	glpiModel "loginuv_backend/internals/features/integrations/glpi/model"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
	sessionModel "loginuv_backend/internals/features/sessions/session/model"
	userModel "loginuv_backend/internals/features/users/account/model"
	csvModel "loginuv_backend/internals/features/users/csvimport/model"
)

func ConnectDB(cfg configs.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	log.Info("🔌 Koneksi ke PostgreSQL...", zap.String("host", cfg.Host), zap.String("db", cfg.Name))

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // cocok untuk PgBouncer (transaction pooling)
	}), &gorm.Config{
		Logger:         configs.NewGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	log.Info("✅ DB terhubung.")
	return db, nil
}

func TunePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return nil
}

// Models is every table owned by this service, in dependency order.
func Models() []any {
	return []any{
		&campusModel.CampusModel{},
		&campusModel.LabModel{},
		&userModel.UserModel{},
		&machineModel.MachineModel{},
		&sessionModel.SessionModel{},
		&eventModel.EventModel{},
		&glpiModel.SyncRunModel{},
		&csvModel.CsvImportModel{},
		&csvModel.CsvImportRowModel{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WarmUp pings the pool in the background so the first request does not pay for the dial.
func WarmUp(db *gorm.DB, log *zap.Logger) {
	go func() {
		time.Sleep(500 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := Ping(ctx, db); err != nil {
			log.Warn("warm-up ping gagal", zap.Error(err))
		}
	}()
}
