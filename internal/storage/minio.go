package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBucket implements Bucket using a MinIO (or any S3-compatible) backend.
type MinioBucket struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioBucket creates a MinIO client for bucket. No network call is made;
// the bucket itself is created on first use through EnsureExists.
func NewMinioBucket(endpoint, accessKey, secretKey, bucket, region string, useSSL bool) (*MinioBucket, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioBucket{client: client, bucket: bucket, region: region}, nil
}

// EnsureExists creates the bucket when it is missing. Objects stay private.
func (b *MinioBucket) EnsureExists(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	err = b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{Region: b.region})
	if err != nil {
		// Another instance may have won the race.
		code := minio.ToErrorResponse(err).Code
		if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", b.bucket, err)
	}
	log.Printf("storage: created bucket %q", b.bucket)
	return nil
}

// Put uploads data under key, replacing any existing object.
func (b *MinioBucket) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// Get downloads the object at key.
func (b *MinioBucket) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, b.mapGetError(key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, b.mapGetError(key, err)
	}
	return data, nil
}

func (b *MinioBucket) mapGetError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrObjectNotFound
	}
	return fmt.Errorf("get object %q: %w", key, err)
}

var _ Bucket = (*MinioBucket)(nil)
