package auth

import (
	"net/http"
	"time"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// VerifyEmail promotes a pending registration into a real user account.
//
// An unknown token answers success with alreadyVerified set: once a
// registration is promoted its pending row is gone, so a second click on the
// same link must not scare the user with an error. An expired token is a real
// error and deletes the row so the same email can register again.
func VerifyEmail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No verification token provided",
			"requestID": requestID,
		})
		return
	}

	var pending model.PendingRegistration
	err := d.DB.
		Where("verification_token = ?", token).
		First(&pending).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusOK, gin.H{
				"message":         "This verification link has already been used or has expired. If you already verified your email, you can log in",
				"alreadyVerified": true,
				"requestID":       requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up verification token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if pending.ExpiresAt.Before(time.Now()) {
		if err := d.DB.Delete(&pending).Error; err != nil {
			zap.L().Error("Failed to delete expired pending registration", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Verification token has expired. Please register again",
			"requestID": requestID,
		})
		return
	}

	// A user with this email can exist when the link raced a duplicate
	// request. Treat it as already done
	var existingCount int64
	err = d.DB.
		Model(&model.User{}).
		Where("email = ?", pending.Email).
		Count(&existingCount).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to check for existing user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if existingCount > 0 {
		if err := d.DB.Delete(&pending).Error; err != nil {
			zap.L().Error("Failed to delete promoted pending registration", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Email verified successfully. You can now log in",
			"requestID": requestID,
		})
		return
	}

	userID, err := gonanoid.Generate(idCharset, 16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate user ID", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.User{
			ID:            userID,
			Username:      pending.Username,
			Email:         pending.Email,
			PasswordHash:  pending.PasswordHash,
			EmailVerified: true,
		}).Error; err != nil {
			return err
		}

		return tx.Delete(&pending).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to promote pending registration", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email verified successfully. You can now log in",
		"requestID": requestID,
	})
}
