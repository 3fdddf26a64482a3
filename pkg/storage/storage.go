package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"edustream/backend/config"
	pkgerrors "edustream/backend/pkg/errors"
)

// Kind 上传文件类别
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Valid 判断类别是否受支持
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindImage
}

// Store S3 兼容对象存储（MinIO / S3 / OSS 网关）
type Store struct {
	client  *minio.Client
	bucket  string
	baseURL string
	logger  *zap.Logger
}

// NewStore 创建对象存储客户端，bucket 不存在时自动创建
func NewStore(cfg *config.StorageConfig, logger *zap.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建对象存储客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查 bucket 失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 bucket 失败: %w", err)
		}
		logger.Info("已创建对象存储 bucket", zap.String("bucket", cfg.Bucket))
	}

	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		logger:  logger,
	}, nil
}

// Upload 流式写入对象存储并返回持久 URL
// size 未知时传 -1，由 SDK 分片上传
func (s *Store) Upload(ctx context.Context, r io.Reader, size int64, kind Kind, folder, filename string) (string, error) {
	key := ObjectKey(kind, folder, filename)

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType(kind, filename),
	})
	if err != nil {
		return "", fmt.Errorf("%w: 上传对象失败: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}

	s.logger.Debug("对象上传完成",
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)
	return s.baseURL + "/" + key, nil
}

// ObjectKey 生成对象键：<folder>/<kind>/<uuid><ext>
func ObjectKey(kind Kind, folder, filename string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = "courses"
	}
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(folder, string(kind), uuid.New().String()+ext)
}

func publicBaseURL(cfg *config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
}

func contentType(kind Kind, filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	}
	if kind == KindVideo {
		return "video/mp4"
	}
	return "application/octet-stream"
}
