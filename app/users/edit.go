package users

import (
	"net/http"
	"strings"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type editRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	FullName *string `json:"fullName"`
}

// Edit updates an account's profile fields. Only username, email and
// full_name can change here, anything else in the request body is ignored.
func Edit(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	user, ok := requireSelfOrAdmin(c, d, requestID)
	if !ok {
		return
	}

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	updates := make(map[string]any, 3)

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if err := validators.UsernameValidator(username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
		updates["username"] = username
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := validators.EmailValidator(email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
		updates["email"] = email
	}

	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	// Taken usernames/emails surface as unique constraint violations
	if newU, ok := updates["username"].(string); ok && newU != user.Username {
		var n int64
		d.DB.Model(&model.User{}).Where("username = ?", newU).Count(&n)
		if n > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Username already taken",
				"requestID": requestID,
			})
			return
		}
	}

	if newE, ok := updates["email"].(string); ok && newE != user.Email {
		var n int64
		d.DB.Model(&model.User{}).Where("email = ?", newE).Count(&n)
		if n > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Email already in use",
				"requestID": requestID,
			})
			return
		}
	}

	err := d.DB.
		Model(user).
		Updates(updates).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, user)
}
