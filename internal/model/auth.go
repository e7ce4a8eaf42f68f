package model

import (
	"errors"
)

// AuthRequest types
type LoginRequest struct {
	AccountType string `json:"account_type" binding:"required,oneof=user clinician"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	AccountType   string `json:"account_type" binding:"required,oneof=user clinician"`
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name" binding:"required"`
	Password      string `json:"password" binding:"required,min=8"`
	LicenseNumber string `json:"license_number" binding:"required_if=AccountType clinician"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,nefield=CurrentPassword"`
}

// AuthResponse types
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

var ErrInvalidCredentials = errors.New("invalid credentials")
