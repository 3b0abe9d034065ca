package infra

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tnqbao/gau-media-gateway/config"
)

type MinioClient struct {
	Admin    *madmin.AdminClient
	Client   *minio.Client
	Endpoint string
}

func InitMinioClient(cfg *config.EnvConfig) *MinioClient {
	endpoint := cfg.Minio.Endpoint
	if endpoint == "" {
		panic("MinIO endpoint is not configured")
	}

	rootUser := cfg.Minio.RootUser
	if rootUser == "" {
		panic("MinIO root user is not configured")
	}

	rootPassword := cfg.Minio.RootPassword
	if rootPassword == "" {
		panic("MinIO root password is not configured")
	}

	madminClient, err := madmin.New(endpoint, rootUser, rootPassword, cfg.Minio.UseSSL)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO admin client: %v", err))
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(rootUser, rootPassword, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize MinIO client: %v", err))
	}

	return &MinioClient{
		Admin:    madminClient,
		Client:   minioClient,
		Endpoint: endpoint,
	}
}

func (m *MinioClient) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (m *MinioClient) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinioClient) Remove(ctx context.Context, bucket, key string) error {
	if err := m.Client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinioClient) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	info, err := m.Client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, err)
	}
	return &ObjectInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

func (m *MinioClient) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := m.Client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign get %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

func (m *MinioClient) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := m.Client.PresignedPutObject(ctx, bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign put %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Health asks the admin API for server info and fails if no server reports online.
func (m *MinioClient) Health(ctx context.Context) error {
	info, err := m.Admin.ServerInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to get MinIO server info: %w", err)
	}
	if len(info.Servers) == 0 {
		return nil
	}
	for _, server := range info.Servers {
		if server.State == "online" {
			return nil
		}
	}
	return fmt.Errorf("no MinIO server online out of %d", len(info.Servers))
}
