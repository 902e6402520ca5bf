package models

import (
	"fmt"
	"net/http"

	"meshvault/model-api/internal"
	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListAssets returns the side-asset files of a model (textures, buffers,
// material files), so the viewer knows what it can fetch next to the main
// file.
func ListAssets(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	var files []model.ModelFile
	err := d.DB.
		Select("id", "file_name", "size", "mime_type", "main_file").
		Where("model_id = ? AND main_file = ?", m.ID, false).
		Order("file_name").
		Find(&files).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list assets", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	out := make([]gin.H, 0, len(files))
	for _, f := range files {
		out = append(out, gin.H{
			"fileName": f.FileName,
			"size":     f.Size,
			"mimeType": f.MimeType,
			"url":      fmt.Sprintf("/api/models/%s/assets/%s", m.ID, f.FileName),
		})
	}

	c.JSON(http.StatusOK, out)
}

// FetchAsset streams one side asset by file name. GLTF loaders resolve
// textures and buffers relative to the main file, which maps exactly onto
// this route.
func FetchAsset(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	m, ok := ownedModel(c, d, requestID, userID)
	if !ok {
		return
	}

	fileName := c.Param("file")

	var mf model.ModelFile
	err := d.DB.
		Where("model_id = ? AND file_name = ?", m.ID, fileName).
		First(&mf).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Asset not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch asset", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	serveFile(c, d, requestID, &mf, fmt.Sprintf("inline; filename=%q", mf.FileName))
}
