package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	a "meshvault/model-api/aws"
	"meshvault/model-api/internal/model"
	"meshvault/model-api/pkg/validators"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Uploader struct {
	DB *gorm.DB
	S3 *a.S3Client
}

func NewUploader(db *gorm.DB, s3 *a.S3Client) *Uploader {
	return &Uploader{
		DB: db,
		S3: s3,
	}
}

// Do persists a validated upload: one Model row plus one ModelFile row per
// payload, all inside a single transaction so a failure never leaves a
// partial model behind. In s3 storage mode the payloads are shipped to the
// bucket first and removed again if the transaction rolls back.
func (u *Uploader) Do(ctx context.Context, up *validators.Upload, userID string, thumbnail []byte) (*model.Model, error) {
	useBlob := viper.GetString("storage.type") == "s3"

	m := &model.Model{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      up.Name,
		Format:    up.Format,
		Size:      up.TotalSize,
		Thumbnail: thumbnail,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	files := make([]model.ModelFile, 0, len(up.Files))
	var blobKeys []string

	for i, fh := range up.Files {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open multipart payload %q, %w", fh.Filename, err)
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart payload %q, %w", fh.Filename, err)
		}

		mime := validators.FormatMime(up.Format)
		if i != up.MainIndex {
			mime = mimetype.Detect(data).String()
		}

		mf := model.ModelFile{
			ID:       uuid.New(),
			ModelID:  m.ID,
			FileName: fh.Filename,
			Size:     int64(len(data)),
			MimeType: mime,
			MainFile: i == up.MainIndex,
		}

		if useBlob {
			key := fmt.Sprintf("%s/%s/%s", userID, m.ID, fh.Filename)
			if err := u.S3.Put(ctx, key, mime, bytes.NewReader(data)); err != nil {
				// Drop whatever already made it to the bucket
				u.cleanupBlobs(blobKeys)
				return nil, err
			}

			mf.BlobKey = key
			blobKeys = append(blobKeys, key)
		} else {
			mf.Data = data
		}

		files = append(files, mf)
	}

	err := u.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		for i := range files {
			if err := tx.Create(&files[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		u.cleanupBlobs(blobKeys)
		return nil, err
	}

	return m, nil
}

func (u *Uploader) cleanupBlobs(keys []string) {
	if len(keys) == 0 {
		return
	}

	if err := u.S3.Delete(context.Background(), keys); err != nil {
		zap.L().Error("Failed to cleanup blobs after aborted upload", zap.Error(err), zap.Strings("keys", keys))
	}
}
