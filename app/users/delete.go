package users

import (
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Delete removes an account together with all of its models and files.
// Callers can only delete themselves unless they're an admin.
func Delete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	user, ok := requireSelfOrAdmin(c, d, requestID)
	if !ok {
		return
	}

	var blobKeys []string
	if viper.GetString("storage.type") == "s3" {
		err := d.DB.
			Model(&model.ModelFile{}).
			Joins("JOIN models ON models.id = model_files.model_id").
			Where("models.user_id = ?", user.ID).
			Pluck("model_files.blob_key", &blobKeys).
			Error
		if err != nil {
			zap.L().Warn("Failed to collect blob keys for account deletion",
				zap.Error(err),
				zap.String("requestID", requestID))
		}
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("model_id IN (?)", tx.Model(&model.Model{}).Select("id").Where("user_id = ?", user.ID)).
			Delete(&model.ModelFile{}).
			Error
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", user.ID).Delete(&model.Model{}).Error; err != nil {
			return err
		}

		return tx.Delete(user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if len(blobKeys) > 0 {
		if err := d.S3.Delete(c.Request.Context(), blobKeys); err != nil {
			zap.L().Warn("Failed to delete blobs of removed account",
				zap.Error(err),
				zap.String("userID", user.ID),
				zap.String("requestID", requestID))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
