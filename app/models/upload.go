package models

import (
	"errors"
	"io"
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upload accepts a multipart form with a "name" field, one or more payloads
// under "files" (the main 3D file plus its textures, buffers and material
// files) and an optional client-rendered "thumbnail" image.
func Upload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed multipart form",
			"requestID": requestID,
		})
		return
	}

	code, up, err := validators.UploadValidator(c.PostForm("name"), form.File["files"], d.DB, userID)
	if err != nil {
		var quotaErr *validators.QuotaError
		if errors.As(err, &quotaErr) {
			c.JSON(code, gin.H{
				"error":     err.Error(),
				"usedBytes": quotaErr.UsedBytes,
				"maxBytes":  quotaErr.MaxBytes,
				"requestID": requestID,
			})
			return
		}

		if code == http.StatusInternalServerError {
			c.JSON(code, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Upload validation failed", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	var thumbnail []byte
	if ths := form.File["thumbnail"]; len(ths) > 0 {
		f, err := ths[0].Open()
		if err == nil {
			thumbnail, err = io.ReadAll(f)
			f.Close()
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to read thumbnail payload", zap.Error(err), zap.String("requestID", requestID))
			return
		}
	}

	m, err := d.Uploader.Do(c.Request.Context(), up, userID, thumbnail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to persist model upload", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"model":     modelJSON(m),
		"message":   "Model uploaded successfully",
		"requestID": requestID,
	})
}
