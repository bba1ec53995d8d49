package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"krishidev/krishidev/chat"
	"krishidev/krishidev/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client *minio.Client
	bucket string
}

func NewMinIOClient(cfg config.Config) (*MinIOClient, error) {
	// Use insecure for local (no HTTPS)
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: false,
		},
	)
	if err != nil {
		return nil, err
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(context.Background(), bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// UploadImage stores a normalized image payload and returns its object key.
func (m *MinIOClient) UploadImage(ctx context.Context, userKey, filename string, payload chat.ImagePayload) (string, error) {
	key := filepath.Join("images", userKey, fmt.Sprintf("%s.jpg", uuid.New().String()))

	_, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(payload.Data), int64(len(payload.Data)),
		minio.PutObjectOptions{
			ContentType:  payload.MIME,
			UserMetadata: map[string]string{"original-filename": filename},
		})
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetImage fetches a stored image by object key.
func (m *MinIOClient) GetImage(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
