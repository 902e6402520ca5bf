// Package models contains the endpoints for uploading, fetching and deleting
// 3D models
package models

import (
	"fmt"
	"strings"

	"meshvault/model-api/internal/model"

	"github.com/gin-gonic/gin"
)

// modelJSON shapes a Model row the way the viewer frontend expects it, with
// ready-made URLs instead of raw storage details.
func modelJSON(m *model.Model) gin.H {
	var thumbURL any
	if len(m.Thumbnail) > 0 {
		thumbURL = fmt.Sprintf("/api/models/%s/thumbnail", m.ID)
	}

	return gin.H{
		"id":           m.ID,
		"userId":       m.UserID,
		"name":         m.Name,
		"fileName":     fmt.Sprintf("%s.%s", m.Name, m.Format),
		"fileFormat":   strings.ToUpper(m.Format),
		"fileSize":     m.Size,
		"fileUrl":      fmt.Sprintf("/api/models/%s/download", m.ID),
		"thumbnailUrl": thumbURL,
		"createdAt":    m.CreatedAt,
		"updatedAt":    m.UpdatedAt,
	}
}
