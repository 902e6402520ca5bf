// Package users contains the account management endpoints
package users

import (
	"net/http"
	"strconv"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// List returns all accounts, paginated. Admin only.
func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if !c.GetBool("isAdmin") {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Admin access required",
			"requestID": requestID,
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := d.DB.Model(&model.User{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to count users", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var rows []model.User
	err := d.DB.
		Order("created_at desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch users", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)

	c.JSON(http.StatusOK, gin.H{
		"data": rows,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// Fetch returns one account. Callers can only read themselves unless they're
// an admin.
func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	user, ok := requireSelfOrAdmin(c, d, requestID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, user)
}

// requireSelfOrAdmin loads the :id user and enforces that the caller either
// is that user or an admin. Writes the error response itself on failure.
func requireSelfOrAdmin(c *gin.Context, d *internal.Deps, requestID string) (*model.User, bool) {
	targetID := c.Param("id")

	if targetID != c.MustGet("userID").(string) && !c.GetBool("isAdmin") {
		// Same response as a missing row so IDs can't be probed
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "User not found",
			"requestID": requestID,
		})
		return nil, false
	}

	var user model.User
	err := d.DB.
		Where("id = ?", targetID).
		First(&user).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return nil, false
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch user", zap.Error(err), zap.String("requestID", requestID))
		return nil, false
	}

	return &user, true
}
