package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"         //nolint:staticcheck // TODO: Migrate to aws-sdk-go-v2
	"github.com/aws/aws-sdk-go/aws/request" //nolint:staticcheck
	"github.com/aws/aws-sdk-go/aws/session" //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3"  //nolint:staticcheck
)

// objectPutter is the subset of the S3 client used by S3Store
type objectPutter interface {
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// S3Store uploads images to an S3 bucket under an optional key prefix
type S3Store struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Store creates a store using the default AWS credential chain
func NewS3Store(region, bucket, prefix string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3Store(s3.New(sess), bucket, prefix), nil
}

func newS3Store(client objectPutter, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for a template image
func (s *S3Store) Key(name, mimeType string) string {
	if s.prefix == "" {
		return ObjectName(name, mimeType)
	}
	return path.Join(s.prefix, ObjectName(name, mimeType))
}

// Save uploads data and returns its s3:// URI
func (s *S3Store) Save(ctx context.Context, name string, data []byte, mimeType string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}

	key := s.Key(name, mimeType)
	contentType := mimeType
	if contentType == "" {
		contentType = "image/" + ExtensionFor(mimeType)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// WithPrefix returns a store sharing the client and bucket under prefix/sub
func (s *S3Store) WithPrefix(sub string) *S3Store {
	return newS3Store(s.client, s.bucket, path.Join(s.prefix, strings.Trim(sub, "/")))
}
