package models

import (
	"bytes"
	"fmt"
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Download streams the main 3D file of a model.
func Download(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	var mf model.ModelFile
	err := d.DB.
		Where("model_id = ? AND main_file = ?", m.ID, true).
		First(&mf).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch main file", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	disposition := fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s.%s", m.Name, m.Format))
	serveFile(c, d, requestID, &mf, disposition)
}

// serveFile writes the payload of one ModelFile row to the response, either
// from the database bytes or by streaming the object out of the bucket.
func serveFile(c *gin.Context, d *internal.Deps, requestID string, mf *model.ModelFile, disposition string) {
	c.Header("Content-Disposition", disposition)

	if viper.GetString("storage.type") == "s3" && mf.BlobKey != "" {
		body, size, err := d.S3.Get(c.Request.Context(), mf.BlobKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to fetch blob", zap.Error(err), zap.String("key", mf.BlobKey), zap.String("requestID", requestID))
			return
		}
		defer body.Close()

		c.DataFromReader(http.StatusOK, size, mf.MimeType, body, nil)
		return
	}

	c.DataFromReader(http.StatusOK, mf.Size, mf.MimeType, bytes.NewReader(mf.Data), nil)
}

// Thumbnail serves the client-rendered preview image stored with the model.
func Thumbnail(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	if len(m.Thumbnail) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Model has no thumbnail",
			"requestID": requestID,
		})
		return
	}

	c.Data(http.StatusOK, "image/png", m.Thumbnail)
}
