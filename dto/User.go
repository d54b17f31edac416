package dto

import (
	"time"

	"istock.com/types"
)

type RegisterRequest struct {
	Username            string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email               string `json:"email" validate:"required,email"`
	Password            string `json:"password" validate:"required,min=8,max=128"`
	FullName            string `json:"full_name" validate:"omitempty,max=100"`
	RiskLevel           string `json:"risk_level" validate:"omitempty,oneof=low medium high"`
	NotificationEnabled *bool  `json:"notification_enabled"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	FullName            *string `json:"full_name" validate:"omitempty,max=100"`
	Email               *string `json:"email" validate:"omitempty,email"`
	RiskLevel           *string `json:"risk_level" validate:"omitempty,oneof=low medium high"`
	NotificationEnabled *bool   `json:"notification_enabled"`
	Password            *string `json:"password" validate:"omitempty,min=8,max=128"`
}

type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        types.User `json:"user"`
}

type UsernameAvailability struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

type EmailAvailability struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

type LockoutError struct {
	LockedUntil time.Time `json:"locked_until"`
}
