package security

import (
	"errors"
	"time"

	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/util"
)

const (
	tokenSize = 32

	// How long a registration may sit unverified before the token expires
	// and the row becomes garbage
	VerificationTTL = 24 * time.Hour
)

type PendingRegistrationOpts struct {
	Username     string
	Email        string
	PasswordHash string
}

// MakePendingRegistration builds a pending registration row with a fresh
// random verification token. Nothing is persisted here.
func MakePendingRegistration(o *PendingRegistrationOpts) (*model.PendingRegistration, error) {
	if o == nil {
		return nil, errors.New("no registration options provided")
	}

	if o.Username == "" {
		return nil, errors.New("no username provided")
	}

	if o.Email == "" {
		return nil, errors.New("no email provided")
	}

	if o.PasswordHash == "" {
		return nil, errors.New("no password hash provided")
	}

	token, err := util.GenerateToken(tokenSize)
	if err != nil {
		return nil, err
	}

	return &model.PendingRegistration{
		Username:          o.Username,
		Email:             o.Email,
		PasswordHash:      o.PasswordHash,
		VerificationToken: token,
		ExpiresAt:         time.Now().Add(VerificationTTL),
		CreatedAt:         time.Now(),
	}, nil
}
