package service

import (
	"time"

	"meshvault/model-api/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PendingCleanup periodically deletes pending registrations whose
// verification token expired. Users caught by this have to register again.
func PendingCleanup(t time.Duration, db *gorm.DB) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Pending registration cleanup attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			res := db.
				Where("expires_at < ?", time.Now()).
				Delete(&model.PendingRegistration{})
			if res.Error != nil {
				zap.L().Error("Failed to cleanup expired pending registrations", zap.Error(res.Error))
				continue
			}

			if res.RowsAffected > 0 {
				zap.L().Debug("Cleaned up expired pending registrations", zap.Int64("rows", res.RowsAffected))
			}
		}
	}()
}
