package service

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edustream/backend/config"
	"edustream/backend/internal/repository"
	pkgerrors "edustream/backend/pkg/errors"
	"edustream/backend/pkg/storage"
)

// ── 通用业务错误 ──

var (
	ErrUnauthenticated     = errors.New("未认证")
	ErrUpstreamUnavailable = pkgerrors.ErrUpstreamUnavailable
)

// 角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleService = "service"
)

// Caller 请求方身份，nil 表示匿名
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// ── 外部协作方接口 ──

// EnrollmentChecker 选课查询（由支付 / 选课服务维护）
type EnrollmentChecker interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
}

// BlobStore 对象存储
type BlobStore interface {
	Upload(ctx context.Context, r io.Reader, size int64, kind storage.Kind, folder, filename string) (string, error)
}

// JobQueue 外部工作队列
type JobQueue interface {
	Enqueue(ctx context.Context, queueName string, payload interface{}) (string, error)
}

// SearchIndexer 搜索索引写入
type SearchIndexer interface {
	IndexDocument(ctx context.Context, id string, fields map[string]interface{}) error
}

// Collaborators 可选的外部依赖；为 nil 时对应功能降级
type Collaborators struct {
	Blob   BlobStore
	Queue  JobQueue
	Search SearchIndexer
}

// MediaFile 待上传的文件流
type MediaFile struct {
	Reader   io.Reader
	Size     int64
	Filename string
}

// Service 所有 Service 的聚合入口
type Service struct {
	Course   CourseService
	Lecture  LectureService
	Progress ProgressService
	Rating   RatingService
	Media    MediaService
	Export   ExportService
}

// NewService 创建 Service 聚合
// 选课查询统一经过超时 + 熔断保护，访问判定与评分共用同一个熔断器
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Collaborators,
	logger *zap.Logger,
) *Service {
	enrollments := NewGuardedEnrollmentChecker(repo.Enrollment, &cfg.Breaker, cfg.Course.EnrollmentLookupTimeout, logger)
	resolver := NewEntitlementResolver(enrollments, logger)
	media := NewMediaService(deps.Blob, logger)

	return &Service{
		Course:   NewCourseService(cfg, repo, resolver, deps, logger),
		Lecture:  NewLectureService(repo, media, cfg.Course.RatingMaxRetries, logger),
		Progress: NewProgressService(repo, logger),
		Rating:   NewRatingService(repo, enrollments, cfg.Course.RatingMaxRetries, logger),
		Media:    media,
		Export:   NewExportService(repo, logger),
	}
}

// validCourseID 课程主键为 UUID，非法格式直接视为不存在，避免数据库类型错误
func validCourseID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
