package aws_client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/internal/tracing"
)

var ErrObjectTooLarge = errors.New("object exceeds size limit")

type S3Client interface {
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
	// Download reads at most maxBytes of the object. Larger objects fail with ErrObjectTooLarge.
	Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error)
}

type s3Client struct {
	Uploader   *s3manager.Uploader
	Downloader *s3manager.Downloader
}

func NewS3Client(config *aws.Config) S3Client {
	s := session.Must(session.NewSession(config))
	return &s3Client{
		Uploader:   s3manager.NewUploader(s),
		Downloader: s3manager.NewDownloader(s),
	}
}

func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Uploader.UploadWithContext(ctx, &uploadContainer)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (s *s3Client) Download(ctx context.Context, bucket, key string, maxBytes int64) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Download")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("s3.key", key)

	head, err := s.Downloader.S3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if size := aws.Int64Value(head.ContentLength); size > maxBytes {
		err := errors.Wrapf(ErrObjectTooLarge, "%s is %d bytes, limit is %d", key, size, maxBytes)
		tracing.TraceErr(span, err)
		return nil, err
	}

	// the range holds one byte past the limit so an object replaced after HEAD is still caught
	buffer := aws.NewWriteAtBuffer(make([]byte, 0, maxBytes+1))
	_, err = s.Downloader.DownloadWithContext(ctx, buffer,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Range:  aws.String(fmt.Sprintf("bytes=0-%d", maxBytes)),
		})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if int64(len(buffer.Bytes())) > maxBytes {
		err := errors.Wrapf(ErrObjectTooLarge, "%s grew past %d bytes", key, maxBytes)
		tracing.TraceErr(span, err)
		return nil, err
	}

	return buffer.Bytes(), nil
}
