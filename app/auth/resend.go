package auth

import (
	"net/http"
	"strings"
	"time"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/security"
	"meshvault/model-api/pkg/util"
	"meshvault/model-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type resendBody struct {
	Email string `json:"email"`
}

// ResendVerification issues a fresh token for a pending registration. The
// response never reveals whether an email is known.
func ResendVerification(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data resendBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})
		return
	}

	data.Email = strings.ToLower(strings.TrimSpace(data.Email))

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	var pending model.PendingRegistration
	err := d.DB.
		Where("email = ?", data.Email).
		First(&pending).
		Error
	if err != nil && err != gorm.ErrRecordNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to look up pending registration", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err == nil {
		token, err := util.GenerateToken(32)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to generate verification token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		err = d.DB.
			Model(&pending).
			Updates(map[string]any{
				"verification_token": token,
				"expires_at":         time.Now().Add(security.VerificationTTL),
			}).
			Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to update verification token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		pending.VerificationToken = token
		if err := d.Mailer.SendVerificationMail(&pending); err != nil {
			zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("requestID", requestID))
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "Verification email sent. Please check your inbox",
			"requestID": requestID,
		})
		return
	}

	// Verified or unknown emails get the same answer, the endpoint must not
	// leak which addresses have an account
	c.JSON(http.StatusOK, gin.H{
		"message":   "If a pending registration with that email exists, a verification email has been sent",
		"requestID": requestID,
	})
}
