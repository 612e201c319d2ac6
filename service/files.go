package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Object key prefixes, one per upload kind.
const (
	PrefixBookFiles  = "books/files/"
	PrefixBookCovers = "books/covers/"
	PrefixAvatars    = "users/avatars/"
)

// FileStore keeps uploaded book files, covers, and avatars in S3. Documents
// hold object keys only; bytes are streamed through the API on demand.
type FileStore struct {
	client *s3.Client
	bucket string
	region string
}

func NewFileStore(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*FileStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

// Upload stores body under prefix with a fresh UUID key, keeping the
// original extension. Returns the object key.
func (s *FileStore) Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error) {
	ext := filepath.Ext(originalFilename)
	key := prefix + uuid.New().String() + ext
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes the object from S3.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Get downloads the object and returns its body and content type. Caller
// must close the returned reader.
func (s *FileStore) Get(ctx context.Context, key string) (body io.ReadCloser, contentType string, err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	ct := ""
	if out.ContentType != nil {
		ct = *out.ContentType
	}
	return out.Body, ct, nil
}
