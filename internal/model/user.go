package model

import "time"

type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	// Empty for accounts created through Google sign-in
	PasswordHash  string    `json:"-"`
	FullName      string    `json:"full_name"`
	IsAdmin       bool      `gorm:"default:false" json:"is_admin"`
	EmailVerified bool      `gorm:"default:false" json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Models []Model `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
