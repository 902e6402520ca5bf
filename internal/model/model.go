// Package model defines database models
package model

import (
	"time"

	"github.com/google/uuid"
)

// Model is one uploaded 3D asset. The physical payloads live in ModelFile
// rows; Size is the byte total across all of them so storage accounting is a
// single SUM over this table.
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	Format    string    `gorm:"not null" json:"format"` // gltf, glb, obj, stl or ply
	Size      int64     `gorm:"not null" json:"size"`
	Thumbnail []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Files []ModelFile `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE" json:"-"`
}

// ModelFile is one physical file belonging to a Model. Exactly one row per
// model has MainFile set, the rest are side assets (textures, .bin buffers,
// .mtl files). Data holds the raw bytes in db storage mode, BlobKey points at
// the S3 object in s3 mode. Rows are never updated after the upload
// transaction commits.
type ModelFile struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ModelID  uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	FileName string    `gorm:"not null" json:"file_name"`
	Data     []byte    `json:"-"`
	BlobKey  string    `json:"-"`
	Size     int64     `gorm:"not null" json:"size"`
	MimeType string    `json:"mime_type"`
	MainFile bool      `gorm:"default:false" json:"main_file"`
}
