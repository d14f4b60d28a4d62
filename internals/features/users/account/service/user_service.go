// internals/features/users/account/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"loginuv_backend/internals/constants"
	"loginuv_backend/internals/features/users/account/dto"
	userModel "loginuv_backend/internals/features/users/account/model"
	helper "loginuv_backend/internals/helpers"
)

var (
	ErrUserCodeTaken      = errors.New("user code already exists")
	ErrInvalidMaxSessions = errors.New("max_sessions must be at least 1")
	ErrUserNotFound       = errors.New("user not found")
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type UserService struct {
	db     *gorm.DB
	hasher PasswordHasher
	log    *zap.Logger
}

func NewUserService(db *gorm.DB, hasher PasswordHasher, log *zap.Logger) *UserService {
	return &UserService{db: db, hasher: hasher, log: log.Named("users")}
}

func (s *UserService) List(ctx context.Context, active *bool, p helper.Paging) ([]userModel.UserModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&userModel.UserModel{})
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var rows []userModel.UserModel
	if err := q.Order("id ASC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return rows, total, nil
}

// Create registers a local account. Single-session accounts are stored with max_sessions = 1.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest) (*userModel.UserModel, error) {
	maxSessions := 1
	if req.MaxSessions != nil {
		maxSessions = *req.MaxSessions
	}
	if maxSessions < 1 {
		return nil, ErrInvalidMaxSessions
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := userModel.UserModel{
		Code:              req.Code,
		FullName:          req.FullName,
		Email:             req.Email,
		Role:              req.Role,
		AcademicPlan:      req.AcademicPlan,
		Semester:          req.Semester,
		PasswordHash:      hash,
		AllowMultiSession: req.AllowMultiSession,
		MaxSessions:       maxSessions,
		IsActive:          req.IsActive == nil || *req.IsActive,
		Source:            constants.SourceLocal,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := codeTaken(tx, user.Code, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrUserCodeTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserCodeTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user dibuat", zap.String("code", user.Code), zap.String("role", user.Role))
	return &user, nil
}

// Patch applies only the fields present in req.
func (s *UserService) Patch(ctx context.Context, id int64, req dto.PatchUserRequest) (*userModel.UserModel, error) {
	if req.MaxSessions != nil && *req.MaxSessions < 1 {
		return nil, ErrInvalidMaxSessions
	}

	var newHash string
	if req.Password != nil && *req.Password != "" {
		h, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		newHash = h
	}

	var user userModel.UserModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		if req.Code != nil && *req.Code != user.Code {
			taken, err := codeTaken(tx, *req.Code, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrUserCodeTaken
			}
			user.Code = *req.Code
		}
		if req.FullName != nil {
			user.FullName = *req.FullName
		}
		if req.Email != nil {
			user.Email = req.Email
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.AcademicPlan != nil {
			user.AcademicPlan = req.AcademicPlan
		}
		if req.Semester != nil {
			user.Semester = req.Semester
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
		if req.AllowMultiSession != nil {
			user.AllowMultiSession = *req.AllowMultiSession
		}
		if req.MaxSessions != nil {
			user.MaxSessions = *req.MaxSessions
		}
		if newHash != "" {
			user.PasswordHash = newHash
		}

		if err := tx.Save(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserCodeTaken
			}
			return fmt.Errorf("save user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func codeTaken(tx *gorm.DB, code string, exceptID int64) (bool, error) {
	var n int64
	if err := tx.Model(&userModel.UserModel{}).
		Where("code = ? AND id <> ?", code, exceptID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check user code: %w", err)
	}
	return n > 0, nil
}
