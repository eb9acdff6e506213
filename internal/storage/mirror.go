package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Mirror copies finished artifacts to secondary object storage.
type Mirror interface {
	Put(ctx context.Context, key, localPath, contentType string) error
	Enabled() bool
}

// NopMirror discards every upload.
type NopMirror struct{}

func (NopMirror) Put(context.Context, string, string, string) error { return nil }
func (NopMirror) Enabled() bool                                      { return false }

// MinIOOptions configures a MinIOMirror.
type MinIOOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
}

// MinIOMirror uploads artifacts into a single bucket, one object per stage key.
type MinIOMirror struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOMirror connects to the endpoint and makes sure the bucket exists.
func NewMinIOMirror(ctx context.Context, opts MinIOOptions) (*MinIOMirror, error) {
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, errors.New("storage: minio endpoint is required")
	}
	if opts.Bucket == "" {
		opts.Bucket = "studio-artifacts"
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}
	return &MinIOMirror{client: client, bucket: opts.Bucket, prefix: strings.Trim(opts.Prefix, "/")}, nil
}

func (m *MinIOMirror) Enabled() bool { return m != nil && m.client != nil }

// Put streams the local file at localPath into the bucket under key.
func (m *MinIOMirror) Put(ctx context.Context, key, localPath, contentType string) error {
	objectName, err := m.objectName(key)
	if err != nil {
		return err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open for mirror: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("storage: stat for mirror: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = m.client.PutObject(ctx, m.bucket, objectName, file, info.Size(), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("storage: mirror upload: %w", err)
	}
	return nil
}

func (m *MinIOMirror) objectName(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	if m.prefix == "" {
		return clean, nil
	}
	return path.Join(m.prefix, clean), nil
}
