// Package objstore 把用户头像保存到 S3 兼容的对象存储（MinIO）。
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/masoommulla/project-sub001/internal/config"
)

// MaxAvatarSize 头像文件大小上限。
const MaxAvatarSize = 2 << 20

// ErrUnsupportedType 不支持的图片类型。
var ErrUnsupportedType = errors.New("avatar must be a jpeg, png, gif or webp image")

var avatarExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Client MinIO 客户端封装。
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// NewClient 创建客户端。Endpoint 为空时返回 nil, nil，表示未启用对象存储。
func NewClient(cfg config.StorageConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage access_key and secret_key are required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}
	return &Client{
		mc:        mc,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

// EnsureBucket 确保 bucket 存在。
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		c.logger.Info("bucket created", slog.String("bucket", c.bucket))
	}
	return nil
}

// PutAvatar 上传头像并返回可公开访问的 URL。
func (c *Client) PutAvatar(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := AvatarKey(userID, contentType)
	if err != nil {
		return "", err
	}
	if size > MaxAvatarSize {
		return "", fmt.Errorf("avatar exceeds %d bytes", MaxAvatarSize)
	}
	_, err = c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return c.publicURL + "/" + key, nil
}

// DeleteAvatar 删除之前上传的头像，url 不属于本存储时忽略。
func (c *Client) DeleteAvatar(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, c.publicURL+"/")
	if !ok || !strings.HasPrefix(key, "avatars/") {
		return nil
	}
	return c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}

// AvatarKey 生成对象键 avatars/<userID>/<uuid><ext>。
func AvatarKey(userID, contentType string) (string, error) {
	ext, ok := avatarExt[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return "avatars/" + userID + "/" + uuid.NewString() + ext, nil
}
