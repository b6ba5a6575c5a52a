package handler

import (
	"strings"

	"trustid/internal/auth/models"
	dErrors "trustid/pkg/domain-errors"
	pkgstring "trustid/pkg/string"
	"trustid/pkg/validation"
)

type RegisterRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *RegisterRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
}

type RegisterGovernmentRequest struct {
	ServiceID   string `json:"service_id" validate:"required,notblank,max=64"`
	ServiceName string `json:"service_name" validate:"required,notblank,max=200"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

func (r *RegisterGovernmentRequest) Normalize() {
	pkgstring.TrimStrings(&r.ServiceID, &r.ServiceName)
}

// LoginRequest takes a phone for citizens or an e-mail for organizations.
type LoginRequest struct {
	Phone    string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if (r.Phone == "") == (r.Email == "") {
		return dErrors.New(dErrors.CodeValidation, "exactly one of phone or email is required")
	}
	return nil
}

type LoginGovernmentRequest struct {
	ServiceID string `json:"service_id" validate:"required,notblank,max=64"`
	Password  string `json:"password" validate:"required,max=72"`
}

func (r *LoginGovernmentRequest) Normalize() {
	r.ServiceID = strings.TrimSpace(r.ServiceID)
}

type SendOTPRequest struct {
	Phone   string `json:"phone" validate:"required,phone"`
	Purpose string `json:"purpose,omitempty" validate:"omitempty,oneof=login password_reset"`
}

func (r *SendOTPRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
	if r.Purpose == "" {
		r.Purpose = string(models.OTPLogin)
	}
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
	r.OTP = strings.TrimSpace(r.OTP)
}

type ResetPasswordRequest struct {
	Phone       string `json:"phone" validate:"required,phone"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
	r.OTP = strings.TrimSpace(r.OTP)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,max=72"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type CheckPhoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

func (r *CheckPhoneRequest) Normalize() {
	r.Phone = pkgstring.NormalizeOwnerKey(r.Phone)
}

type CheckEmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

func (r *CheckEmailRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}
