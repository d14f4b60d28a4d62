// file: internals/features/users/account/dto/user_dto.go
package dto

import (
	"strings"
	"time"

	userModel "loginuv_backend/internals/features/users/account/model"
)

/* =======================================================
   REQUEST DTOs
   ======================================================= */

type CreateUserRequest struct {
	Code              string  `json:"code" validate:"required,max=60"`
	FullName          string  `json:"full_name" validate:"required,max=160"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email,max=180"`
	Role              string  `json:"role" validate:"required,oneof=student teacher admin"`
	AcademicPlan      *string `json:"academic_plan,omitempty" validate:"omitempty,max=120"`
	Semester          *string `json:"semester,omitempty" validate:"omitempty,max=20"`
	Password          string  `json:"password" validate:"required,min=6,max=128"`
	AllowMultiSession bool    `json:"allow_multi_session"`
	MaxSessions       *int    `json:"max_sessions,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

func (r *CreateUserRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = trimPtr(r.Email)
	r.AcademicPlan = trimPtr(r.AcademicPlan)
	r.Semester = trimPtr(r.Semester)
}

type PatchUserRequest struct {
	Code              *string `json:"code,omitempty" validate:"omitempty,min=1,max=60"`
	FullName          *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=160"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email,max=180"`
	Role              *string `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin"`
	AcademicPlan      *string `json:"academic_plan,omitempty" validate:"omitempty,max=120"`
	Semester          *string `json:"semester,omitempty" validate:"omitempty,max=20"`
	Password          *string `json:"password,omitempty" validate:"omitempty,min=6,max=128"`
	AllowMultiSession *bool   `json:"allow_multi_session,omitempty"`
	MaxSessions       *int    `json:"max_sessions,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

func (r *PatchUserRequest) Normalize() {
	r.Code = trimPtr(r.Code)
	r.FullName = trimPtr(r.FullName)
	r.Email = trimPtr(r.Email)
	r.AcademicPlan = trimPtr(r.AcademicPlan)
	r.Semester = trimPtr(r.Semester)
}

type ListUsersQuery struct {
	Active *bool `query:"active"`
}

/* =======================================================
   RESPONSE DTO
   ======================================================= */

type UserResponse struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	FullName          string    `json:"full_name"`
	Email             *string   `json:"email"`
	Role              string    `json:"role"`
	AcademicPlan      *string   `json:"academic_plan"`
	Semester          *string   `json:"semester"`
	AllowMultiSession bool      `json:"allow_multi_session"`
	MaxSessions       int       `json:"max_sessions"`
	IsActive          bool      `json:"is_active"`
	Source            string    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func ToUserResponse(m userModel.UserModel) UserResponse {
	return UserResponse{
		ID:                m.ID,
		Code:              m.Code,
		FullName:          m.FullName,
		Email:             m.Email,
		Role:              m.Role,
		AcademicPlan:      m.AcademicPlan,
		Semester:          m.Semester,
		AllowMultiSession: m.AllowMultiSession,
		MaxSessions:       m.MaxSessions,
		IsActive:          m.IsActive,
		Source:            m.Source,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func ToUserResponses(rows []userModel.UserModel) []UserResponse {
	out := make([]UserResponse, 0, len(rows))
	for _, m := range rows {
		out = append(out, ToUserResponse(m))
	}
	return out
}

// trimPtr trims the value and turns blank strings into nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
