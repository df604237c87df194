package upload

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// PublicTagging marks uploaded recordings as publicly shareable.
const PublicTagging = "public=yes"

// ObjectPutter is the part of *s3.Client used to store a recording.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores recordings in an S3 bucket.
type S3 struct {
	client ObjectPutter
	bucket string
}

// NewS3 creates an S3 destination for bucket.
func NewS3(client ObjectPutter, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Upload stores the file at path under key and returns its s3:// location.
func (s *S3) Upload(ctx context.Context, key, path string) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("s3 upload: bucket is required")
	}
	if key == "" {
		return "", fmt.Errorf("s3 upload: object key is required")
	}

	f, size, err := openRecording(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Str("path", path).
		Int64("size", size).
		Msg("Uploading recording to S3")

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(ContentType(key)),
		Tagging:       aws.String(PublicTagging),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording to S3: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	log.Info().Str("location", location).Msg("File uploaded successfully")
	return location, nil
}
