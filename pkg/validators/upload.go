package validators

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"meshvault/model-api/internal/model"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	ErrNoFiles          = errors.New("no files provided")
	ErrFileTooLarge     = errors.New("file too large")
	ErrFileNameTooLong  = errors.New("file name is too long")
	ErrNoMainFile       = errors.New("no 3D model file found among the uploaded files")
	ErrAmbiguousUpload  = errors.New("more than one 3D model file in a single upload")
	ErrModelNameMissing = errors.New("model name is required")
)

const maxFileNameSize = 255

// modelMimes maps the allowed model formats to the MIME type served on
// download. Side assets get their type sniffed instead.
var modelMimes = map[string]string{
	"gltf": "model/gltf+json",
	"glb":  "model/gltf-binary",
	"obj":  "text/plain",
	"stl":  "application/vnd.ms-pki.stl",
	"ply":  "application/octet-stream",
}

// QuotaError carries the numbers the client needs to render a usage message.
type QuotaError struct {
	UsedBytes int64
	MaxBytes  int64
	Candidate int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("storage limit exceeded: %.2fMiB of %.0fMiB used, upload is %.2fMiB",
		float64(e.UsedBytes)/(1<<20), float64(e.MaxBytes)/(1<<20), float64(e.Candidate)/(1<<20))
}

// Upload is a validated set of multipart payloads ready for persisting.
type Upload struct {
	Name   string
	Format string

	// Index into Files of the single payload recognized as the main 3D
	// asset by its extension
	MainIndex int
	Files     []*multipart.FileHeader
	TotalSize int64
}

// ModelFormat returns the allowed format tag for a file name, or "" when the
// file is a side asset.
func ModelFormat(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if _, ok := modelMimes[ext]; ok {
		return ext
	}

	return ""
}

// FormatMime returns the download MIME type for a model format tag.
func FormatMime(format string) string {
	if m, ok := modelMimes[format]; ok {
		return m
	}

	return "application/octet-stream"
}

// UploadValidator checks an incoming model upload: file name and size caps,
// exactly one payload with a 3D model extension, and the caller's storage
// quota. The quota check is advisory, two concurrent uploads can both pass it
// and land slightly over the ceiling.
func UploadValidator(name string, files []*multipart.FileHeader, db *gorm.DB, userID string) (int, *Upload, error) {
	if strings.TrimSpace(name) == "" {
		return http.StatusBadRequest, nil, ErrModelNameMissing
	}

	if len(files) == 0 {
		return http.StatusBadRequest, nil, ErrNoFiles
	}

	maxFileSize := viper.GetInt64("upload.max_size")

	u := &Upload{
		Name:      strings.TrimSpace(name),
		MainIndex: -1,
		Files:     files,
	}

	for i, fh := range files {
		if len(fh.Filename) > maxFileNameSize {
			return http.StatusBadRequest, nil, ErrFileNameTooLong
		}

		if fh.Size > maxFileSize {
			return http.StatusRequestEntityTooLarge, nil, ErrFileTooLarge
		}

		u.TotalSize += fh.Size

		if format := ModelFormat(fh.Filename); format != "" {
			if u.MainIndex >= 0 {
				return http.StatusBadRequest, nil, ErrAmbiguousUpload
			}

			u.MainIndex = i
			u.Format = format
		}
	}

	if u.MainIndex < 0 {
		return http.StatusBadRequest, nil, ErrNoMainFile
	}

	if db != nil {
		var usedBytes int64
		err := db.
			Model(model.Model{}).
			Where("user_id = ?", userID).
			Select("COALESCE(SUM(size), 0)").
			Scan(&usedBytes).
			Error
		if err != nil {
			return http.StatusInternalServerError, nil, err
		}

		quota := viper.GetInt64("storage.quota")
		if usedBytes+u.TotalSize > quota {
			return http.StatusRequestEntityTooLarge, nil, &QuotaError{
				UsedBytes: usedBytes,
				MaxBytes:  quota,
				Candidate: u.TotalSize,
			}
		}
	}

	return 0, u, nil
}
