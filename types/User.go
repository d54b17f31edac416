package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                  string     `gorm:"primaryKey;size:36" json:"id"`
	Username            string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email               string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	HashedPassword      string     `gorm:"size:255;not null" json:"-"`
	FullName            string     `gorm:"size:100" json:"full_name"`
	IsActive            bool       `gorm:"default:true" json:"is_active"`
	IsSuperuser         bool       `gorm:"default:false" json:"is_superuser"`
	NotificationEnabled bool       `gorm:"default:true" json:"notification_enabled"`
	RiskLevel           string     `gorm:"size:20;default:medium" json:"risk_level"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
