// Package auth contains the registration, verification and login endpoints
package auth

import (
	"net/http"
	"strings"
	"time"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/security"
	"meshvault/model-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	// Emails are stored lowercase so the same address can't register twice
	// with different casing
	data.Email = strings.ToLower(strings.TrimSpace(data.Email))

	if err := validators.UsernameValidator(data.Username); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	// Sweep expired pending rows first so an abandoned registration doesn't
	// block the same username or email forever
	if err := d.DB.
		Where("expires_at < ?", time.Now()).
		Delete(&model.PendingRegistration{}).
		Error; err != nil {
		zap.L().Error("Failed to sweep expired pending registrations", zap.Error(err), zap.String("requestID", requestID))
	}

	var existing model.User
	err := d.DB.
		Where("username = ? OR email = ?", data.Username, data.Email).
		First(&existing).
		Error
	if err == nil {
		if existing.Email == data.Email && existing.PasswordHash == "" {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "This email is already registered via Google. Please sign in with Google instead",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusConflict, gin.H{
			"error":     "A user with this username or email already exists",
			"requestID": requestID,
		})
		return
	} else if err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check if user is registered", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var pendingCount int64
	err = d.DB.
		Model(&model.PendingRegistration{}).
		Where("username = ? OR email = ?", data.Username, data.Email).
		Count(&pendingCount).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check pending registrations", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if pendingCount > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":     "A registration with this username or email is already pending verification. Please check your email",
			"requestID": requestID,
		})
		return
	}

	hash, err := d.Argon.GenerateFromPassword(data.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to hash password", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	pending, err := security.MakePendingRegistration(&security.PendingRegistrationOpts{
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: hash,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to build pending registration", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := d.DB.Create(pending).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create pending registration", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// A broken mail setup shouldn't eat the registration, the user can ask
	// for a resend later
	if err := d.Mailer.SendVerificationMail(pending); err != nil {
		zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("requestID", requestID))
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Registration successful. Please check your email to verify your account",
		"requestID": requestID,
	})
}
