package models

import (
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// List returns the caller's models, newest first.
func List(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var rows []model.Model
	err := d.DB.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch models", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, modelJSON(&rows[i]))
	}

	c.JSON(http.StatusOK, out)
}

// Fetch returns one model's metadata. Rows of other users are reported as
// not found, a caller can't probe whether an ID exists.
func Fetch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, modelJSON(m))
}

// ownedModel loads the model from the :id param scoped to the caller and
// writes the error response itself when that fails.
func ownedModel(c *gin.Context, d *internal.Deps, requestID, userID string) (*model.Model, bool) {
	modelID := c.Param("id")
	if modelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No model ID provided",
			"requestID": requestID,
		})
		return nil, false
	}

	var m model.Model
	err := d.DB.
		Where("user_id = ? AND id = ?", userID, modelID).
		First(&m).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Model not found",
				"requestID": requestID,
			})
			return nil, false
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch model", zap.Error(err), zap.String("requestID", requestID))
		return nil, false
	}

	return &m, true
}
