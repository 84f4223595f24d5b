// Package storage wraps the S3-compatible object store holding portfolio
// uploads and generated images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client handles object storage using the MinIO S3 client.
type Client struct {
	client       *minio.Client
	bucketName   string
	cdnBaseURL   string
	signedURLTTL time.Duration
	logger       *zap.Logger
}

// NewClient creates a storage client from the configured endpoint.
func NewClient(cfg *config.Storage, logger *zap.Logger) (*Client, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ttl := time.Duration(cfg.SignedURLTTL) * time.Minute
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	return &Client{
		client:       client,
		bucketName:   cfg.Bucket,
		cdnBaseURL:   strings.TrimSuffix(cfg.CDNBaseURL, "/"),
		signedURLTTL: ttl,
		logger:       logger.Named("storage"),
	}, nil
}

// PutObject uploads an object.
func (c *Client) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucketName, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return nil
}

// GetObject retrieves an object.
func (c *Client) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := c.client.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return data, nil
}

// DeleteObject removes an object.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	return nil
}

// DeletePrefix removes every object under a prefix. Used when a portfolio is
// superseded by a newer upload.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	objectCh := c.client.ListObjects(ctx, c.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects with prefix %s: %w", prefix, object.Err)
		}

		if err := c.DeleteObject(ctx, object.Key); err != nil {
			return err
		}
	}

	return nil
}

// URL returns a servable URL for a stored object: the CDN URL when a CDN base
// is configured, otherwise a presigned URL with the configured TTL.
func (c *Client) URL(ctx context.Context, key string) (string, error) {
	if c.cdnBaseURL != "" {
		return c.cdnBaseURL + "/" + key, nil
	}

	presigned, err := c.client.PresignedGetObject(ctx, c.bucketName, key, c.signedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}

	return presigned.String(), nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket %s exists: %w", c.bucketName, err)
	}

	if !exists {
		err = c.client.MakeBucket(ctx, c.bucketName, minio.MakeBucketOptions{Region: "auto"})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", c.bucketName, err)
		}
	}

	return nil
}
