package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInactiveUser       = errors.New("user account is disabled")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrUserNotFound       = errors.New("user not found")
)

var now = time.Now

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func RegisterUser(req *dto.RegisterRequest) (*types.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := db.DB.Model(&types.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	available, err := EmailAvailable(email, "")
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, ErrEmailTaken
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := types.User{
		Username:            username,
		Email:               email,
		HashedPassword:      hashed,
		FullName:            req.FullName,
		IsActive:            true,
		NotificationEnabled: true,
		RiskLevel:           "medium",
	}
	if req.RiskLevel != "" {
		user.RiskLevel = req.RiskLevel
	}
	if req.NotificationEnabled != nil {
		user.NotificationEnabled = *req.NotificationEnabled
	}

	if err := db.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if req.NotificationEnabled != nil && !*req.NotificationEnabled {
		if err := db.DB.Model(&user).Update("notification_enabled", false).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}
	log.Infof("Registered user %s", user.Username)
	return &user, nil
}

// EmailAvailable reports whether no user other than exceptID has the email.
func EmailAvailable(email, exceptID string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var count int64
	q := db.DB.Model(&types.User{}).Where("email = ?", email)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count == 0, nil
}

// Authenticate checks the password and applies the failed-login lockout.
func Authenticate(username, password string) (*types.User, error) {
	var user types.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	t := now()
	if user.LockedUntil != nil && user.LockedUntil.After(t) {
		return &user, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		updates := map[string]any{"failed_login_attempts": user.FailedLoginAttempts + 1}
		if user.FailedLoginAttempts+1 >= MaxFailedLogins {
			until := t.Add(LockoutDuration)
			updates["locked_until"] = &until
			updates["failed_login_attempts"] = 0
			user.LockedUntil = &until
			log.Warnf("User %s locked until %s after %d failed logins", user.Username, until.Format(time.RFC3339), MaxFailedLogins)
		}
		if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
			log.Errorf("Failed to record login failure for %s: %v", user.Username, err)
		}
		if user.LockedUntil != nil && user.LockedUntil.After(t) {
			return &user, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	user.LastLogin = &t
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	if err := db.DB.Model(&user).Updates(map[string]any{
		"last_login":            t,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error; err != nil {
		log.Errorf("Failed to update last login for %s: %v", user.Username, err)
	}
	return &user, nil
}

func GetUser(id string) (*types.User, error) {
	var user types.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func UpdateUser(id string, req *dto.UpdateUserRequest) (*types.User, error) {
	user, err := GetUser(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			available, err := EmailAvailable(email, user.ID)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, ErrEmailTaken
			}
		}
		updates["email"] = email
	}
	if req.RiskLevel != nil {
		updates["risk_level"] = *req.RiskLevel
	}
	if req.NotificationEnabled != nil {
		updates["notification_enabled"] = *req.NotificationEnabled
	}
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["hashed_password"] = hashed
	}

	if len(updates) > 0 {
		if err := db.DB.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return GetUser(id)
}

func UsernameAvailable(username string) (bool, error) {
	var count int64
	if err := db.DB.Model(&types.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
