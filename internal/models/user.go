package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a marketplace account. The table is owned by the accounts subsystem;
// this service only reads it.
type User struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Name   string `json:"name"`
	Email  string `gorm:"uniqueIndex" json:"email"`
	Phone  string `json:"phone,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	// Role is tenant, landlord or admin.
	Role string `json:"role"`
	// PasswordHash never leaves the storage layer.
	PasswordHash string `gorm:"column:password_hash" json:"-"`
}

// UserSummary is the contact-safe projection of a User shown next to conversations and messages.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
}

// Summary strips everything but the display fields.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Role:   u.Role,
	}
}

// BeforeCreate generates a UUID for the user if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
