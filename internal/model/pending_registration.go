package model

import "time"

// PendingRegistration holds an account that registered but hasn't clicked
// the verification link yet. A User row is only created once the token is
// presented before ExpiresAt. Expired rows are swept by the cleanup service.
type PendingRegistration struct {
	ID                int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username          string    `gorm:"index;not null" json:"username"`
	Email             string    `gorm:"index;not null" json:"email"`
	PasswordHash      string    `gorm:"not null" json:"-"`
	VerificationToken string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt         time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
}
