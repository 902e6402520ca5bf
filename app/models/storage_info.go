package models

import (
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type storageInfo struct {
	UsedBytes  int64 `json:"usedBytes"`
	ModelCount int64 `json:"modelCount"`
}

// StorageInfo reports the caller's storage usage against the quota.
func StorageInfo(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var info storageInfo
	err := d.DB.
		Model(&model.Model{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(size), 0) as used_bytes, COUNT(*) as model_count").
		Scan(&info).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to compute storage info", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"usedBytes":  info.UsedBytes,
		"maxBytes":   viper.GetInt64("storage.quota"),
		"modelCount": info.ModelCount,
	})
}
