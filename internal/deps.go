package internal

import (
	"meshvault/model-api/aws"
	"meshvault/model-api/internal/service"
	"meshvault/model-api/pkg/security"

	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Argon    *security.ArgonHash
	S3       *aws.S3Client
	Uploader *service.Uploader
	Mailer   *service.Mailer
}
