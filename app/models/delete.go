package models

import (
	"context"
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Delete removes a model and all of its file rows. Blob objects are cleaned
// up after the transaction commits, a dangling object is cheaper than a
// model row whose payload is gone.
func Delete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	var blobKeys []string
	if viper.GetString("storage.type") == "s3" {
		err := d.DB.
			Model(&model.ModelFile{}).
			Where("model_id = ? AND blob_key <> ''", m.ID).
			Pluck("blob_key", &blobKeys).
			Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to collect blob keys", zap.Error(err), zap.String("requestID", requestID))
			return
		}
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("model_id = ?", m.ID).Delete(&model.ModelFile{}).Error; err != nil {
			return err
		}

		return tx.Delete(m).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete model", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if len(blobKeys) > 0 {
		if err := d.S3.Delete(context.Background(), blobKeys); err != nil {
			zap.L().Error("Failed to delete blobs", zap.Error(err), zap.String("requestID", requestID))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Model deleted successfully",
		"requestID": requestID,
	})
}
