package storage

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/services/storage/aws_client"
)

func R2Endpoint(accountID string) string {
	return "https://" + accountID + ".r2.cloudflarestorage.com"
}

// NewR2StorageService serves the scam registry bucket from Cloudflare R2.
func NewR2StorageService(cfg *config.R2StorageConfig) interfaces.StorageService {
	r2Client := aws_client.NewS3Client(&aws.Config{
		Endpoint:         aws.String(R2Endpoint(cfg.AccountID)),
		Region:           aws.String("auto"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	})

	return NewStorageService(r2Client, cfg.RegistryBucket)
}
