package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore keeps objects in an S3-compatible bucket.
type MinioStore struct {
	Client *minio.Client
	Bucket string
}

// NewMinioStore connects to endpoint and creates bucket when it is missing.
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		log.Printf("STORAGE created bucket %s", bucket)
	}
	return &MinioStore{Client: client, Bucket: bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = -1
	}
	_, err = s.Client.PutObject(ctx, s.Bucket, k, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", k, err)
	}
	return nil
}

// Fetch downloads the object into a temp file that cleanup removes.
func (s *MinioStore) Fetch(ctx context.Context, key string) (string, func(), error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", nil, err
	}
	tmp, err := os.CreateTemp("", "answer-*"+path.Ext(k))
	if err != nil {
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	name := tmp.Name()
	tmp.Close()
	cleanup := func() { os.Remove(name) }
	if err := s.Client.FGetObject(ctx, s.Bucket, k, name, minio.GetObjectOptions{}); err != nil {
		cleanup()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", nil, fmt.Errorf("%w: %s", ErrNotFound, k)
		}
		return "", nil, fmt.Errorf("get %s: %w", k, err)
	}
	return name, cleanup, nil
}
