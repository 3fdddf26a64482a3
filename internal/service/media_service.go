package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"edustream/backend/internal/dto"
	"edustream/backend/pkg/storage"
)

// ── 媒体模块业务错误 ──

var (
	ErrInvalidMediaKind = errors.New("媒体类型只能是 video 或 image")
	ErrEmptyMedia       = errors.New("上传文件为空")
)

const defaultUploadFolder = "uploads"

// MediaService 媒体上传业务接口
type MediaService interface {
	// Ingest 上传到默认目录
	Ingest(ctx context.Context, file *MediaFile, kind string) (*dto.UploadResponse, error)
	// IngestInto 上传到指定目录，例如某门课程的讲次视频
	IngestInto(ctx context.Context, file *MediaFile, kind, folder string) (*dto.UploadResponse, error)
}

type mediaService struct {
	blob   BlobStore
	logger *zap.Logger
}

// NewMediaService 创建 MediaService 实例，blob 为 nil 时上传返回 ErrUpstreamUnavailable
func NewMediaService(blob BlobStore, logger *zap.Logger) MediaService {
	return &mediaService{blob: blob, logger: logger}
}

func (s *mediaService) Ingest(ctx context.Context, file *MediaFile, kind string) (*dto.UploadResponse, error) {
	return s.IngestInto(ctx, file, kind, defaultUploadFolder)
}

func (s *mediaService) IngestInto(ctx context.Context, file *MediaFile, kind, folder string) (*dto.UploadResponse, error) {
	k := storage.Kind(kind)
	if !k.Valid() {
		return nil, ErrInvalidMediaKind
	}
	if file == nil || file.Reader == nil || file.Size == 0 {
		return nil, ErrEmptyMedia
	}
	if s.blob == nil {
		return nil, fmt.Errorf("%w: 对象存储未配置", ErrUpstreamUnavailable)
	}

	url, err := s.blob.Upload(ctx, file.Reader, file.Size, k, folder, file.Filename)
	if err != nil {
		s.logger.Error("上传媒体文件失败",
			zap.String("kind", kind),
			zap.String("filename", file.Filename),
			zap.Error(err),
		)
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	s.logger.Info("媒体文件已上传", zap.String("kind", kind), zap.String("url", url))
	return &dto.UploadResponse{URL: url, Kind: kind}, nil
}
