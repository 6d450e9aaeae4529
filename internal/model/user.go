package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"smartbin/portal/pkg/authz"
)

type UserStatus int

const (
	UserStatusActive   UserStatus = 1
	UserStatusDisabled UserStatus = 2
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusDisabled
}

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string         `gorm:"type:varchar(320);not null" json:"email"`
	Name         string         `gorm:"type:varchar(128);not null" json:"name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         authz.Role     `gorm:"type:varchar(32);not null;default:'customer'" json:"role"`
	Status       UserStatus     `gorm:"type:smallint;not null;default:1" json:"status"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) Active() bool { return u.Status == UserStatusActive }
