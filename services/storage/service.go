package storage

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/services/storage/aws_client"
)

// MaxObjectSize bounds the documents kept in the bucket. Registries are small YAML files.
const MaxObjectSize = 4 << 20

const defaultContentType = "application/octet-stream"

// ObjectStorageService implements StorageService on top of an S3 compatible bucket
type ObjectStorageService struct {
	client     aws_client.S3Client
	bucketName string
}

func NewStorageService(client aws_client.S3Client, bucketName string) interfaces.StorageService {
	return &ObjectStorageService{
		client:     client,
		bucketName: bucketName,
	}
}

func (s *ObjectStorageService) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	span.SetTag("object.key", key)

	if key == "" {
		return errors.New("object key is empty")
	}
	if len(data) > MaxObjectSize {
		err := errors.Errorf("object %s is %d bytes, limit is %d", key, len(data), MaxObjectSize)
		tracing.TraceErr(span, err)
		return err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	uploadInput := s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if err := s.client.Upload(ctx, uploadInput); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to upload %s", key)
	}
	return nil
}

func (s *ObjectStorageService) Download(ctx context.Context, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ObjectStorageService.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	span.SetTag("object.key", key)

	if key == "" {
		return nil, errors.New("object key is empty")
	}

	content, err := s.client.Download(ctx, s.bucketName, key, MaxObjectSize)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "failed to download %s", key)
	}

	return content, nil
}
