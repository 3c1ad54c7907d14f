package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

var ErrUnsupportedType = errors.New("unsupported content type")

// Config holds the object storage settings. An empty Endpoint disables
// photo uploads.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// MinIO stores care profile photos in a single bucket.
type MinIO struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinIO connects to MinIO and creates the bucket if it does not exist.
func NewMinIO(ctx context.Context, cfg Config) (*MinIO, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.WithField("bucket", cfg.Bucket).Info("created photo bucket")
	}

	log.WithFields(log.Fields{"endpoint": cfg.Endpoint, "bucket": cfg.Bucket}).Info("✓ Connected to MinIO")
	return &MinIO{client: c, bucket: cfg.Bucket, publicBase: publicBase(cfg)}, nil
}

func publicBase(cfg Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimRight(cfg.PublicURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + cfg.Endpoint
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// PutPhoto uploads an image under prefix and returns its object key and
// public URL.
func (m *MinIO) PutPhoto(ctx context.Context, prefix string, r io.Reader, size int64, contentType string) (string, string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := objectKey(prefix, ext)
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return key, m.URL(key), nil
}

// URL returns the public URL of an object key.
func (m *MinIO) URL(key string) string {
	return joinURL(m.publicBase, m.bucket, key)
}

// DeletePhoto removes a previously uploaded object.
func (m *MinIO) DeletePhoto(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// KeyFromURL recovers the object key from a URL produced by URL. The second
// result is false for URLs pointing elsewhere.
func (m *MinIO) KeyFromURL(raw string) (string, bool) {
	prefix := joinURL(m.publicBase, m.bucket) + "/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, prefix), true
}

func joinURL(base string, elems ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "/" + path.Join(elems...)
	}
	u.Path = path.Join(append([]string{u.Path}, elems...)...)
	return u.String()
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_]+`)

func sanitize(name string) string {
	name = strings.ToLower(name)
	name = nonSafe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_")
	if name == "" {
		name = "photo"
	}
	return name
}

func objectKey(prefix, ext string) string {
	return fmt.Sprintf("care-profiles/%s/%s%s", sanitize(prefix), randomHex(8), ext)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
