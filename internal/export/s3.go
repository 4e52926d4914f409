package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3BundleStore stores bundles in an S3 bucket and issues presigned GET URLs.
type S3BundleStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

var _ BundleStore = (*S3BundleStore)(nil)

// NewS3BundleStore creates an S3-backed bundle store.
func NewS3BundleStore(client *s3.Client, bucket string) *S3BundleStore {
	return &S3BundleStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
	}
}

func (s *S3BundleStore) Put(ctx context.Context, key string, data []byte) error {
	contentType := "application/zip"
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("upload bundle to S3: %w", err)
	}

	log.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Bundle uploaded to S3")
	return nil
}

func (s *S3BundleStore) DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     &s.bucket,
		Key:                        &key,
		ResponseContentDisposition: aws.String(`attachment; filename="deck.zip"`),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}
