package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"edustream/backend/config"
	"edustream/backend/internal/dto"
	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
	"edustream/backend/pkg/metrics"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound        = errors.New("课程不存在")
	ErrNotCourseOwner        = errors.New("仅课程所有者或管理员可执行此操作")
	ErrCourseCreateForbidden = errors.New("仅教师或管理员可创建课程")
)

// TranscodeJob 转码任务载荷，由外部转码服务消费
type TranscodeJob struct {
	CourseID string `json:"course_id"`
	VideoURL string `json:"video_url"`
}

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, req *dto.CreateCourseRequest, caller *Caller) (*dto.CreateCourseResponse, error)
	List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseSummaryResponse, int64, error)
	Get(ctx context.Context, id string, caller *Caller) (dto.CourseView, error)
	MarkTranscoded(ctx context.Context, req *dto.TranscodeCompleteRequest, caller *Caller) (*dto.CourseFullResponse, error)
}

type courseService struct {
	repo       *repository.Repository
	resolver   *EntitlementResolver
	queue      JobQueue
	search     SearchIndexer
	queueName  string
	maxRetries int
	logger     *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(cfg *config.Config, repo *repository.Repository, resolver *EntitlementResolver, deps Collaborators, logger *zap.Logger) CourseService {
	return &courseService{
		repo:       repo,
		resolver:   resolver,
		queue:      deps.Queue,
		search:     deps.Search,
		queueName:  cfg.Queue.TranscodeQueue,
		maxRetries: cfg.Course.RatingMaxRetries,
		logger:     logger,
	}
}

// ────────────────────── Create ──────────────────────

// Create 先持久化课程，再投递转码任务与写入搜索索引
// 旁路失败只记录 warning，不回滚课程
func (s *courseService) Create(ctx context.Context, req *dto.CreateCourseRequest, caller *Caller) (*dto.CreateCourseResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if caller.Role != RoleTeacher && caller.Role != RoleAdmin {
		return nil, ErrCourseCreateForbidden
	}

	teacherID := caller.UserID
	if caller.IsAdmin() && req.TeacherID != "" {
		teacherID = req.TeacherID
	}

	lectures := make(datatypes.JSONSlice[model.Lecture], 0, len(req.Lectures))
	for _, l := range req.Lectures {
		lectures = append(lectures, model.Lecture{
			ID:        uuid.NewString(),
			Title:     l.Title,
			VideoURL:  l.VideoURL,
			Thumbnail: l.Thumbnail,
		})
	}

	course := &model.Course{
		Title:            req.Title,
		Description:      req.Description,
		ShortDescription: req.ShortDescription,
		Thumbnail:        req.Thumbnail,
		DemoVideoURL:     req.DemoVideoURL,
		SourceVideoURL:   req.VideoURL,
		TeacherID:        teacherID,
		Lectures:         lectures,
		Ratings:          datatypes.JSONSlice[model.Rating]{},
		Resources:        append(datatypes.JSONSlice[string]{}, req.Resources...),
	}
	course.CreatedBy = &caller.UserID
	course.UpdatedBy = &caller.UserID

	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}

	var warnings []string
	if course.SourceVideoURL != "" {
		if w := s.enqueueTranscode(ctx, course); w != "" {
			warnings = append(warnings, w)
		}
	}
	if w := s.indexCourse(ctx, course); w != "" {
		warnings = append(warnings, w)
	}

	s.logger.Info("课程已创建",
		zap.String("course_id", course.CourseID),
		zap.String("teacher_id", teacherID),
		zap.Int("lectures", len(course.Lectures)),
		zap.Int("warnings", len(warnings)),
	)

	return &dto.CreateCourseResponse{
		Course:   toCourseFull(course),
		Warnings: warnings,
	}, nil
}

func (s *courseService) enqueueTranscode(ctx context.Context, course *model.Course) string {
	if s.queue == nil {
		metrics.IngestionWarnings.WithLabelValues("queue").Inc()
		return "转码队列不可用，完整视频暂未处理"
	}
	jobID, err := s.queue.Enqueue(ctx, s.queueName, TranscodeJob{
		CourseID: course.CourseID,
		VideoURL: course.SourceVideoURL,
	})
	if err != nil {
		metrics.IngestionWarnings.WithLabelValues("queue").Inc()
		s.logger.Warn("投递转码任务失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return "投递转码任务失败，完整视频暂未处理"
	}
	s.logger.Info("转码任务已投递", zap.String("course_id", course.CourseID), zap.String("job_id", jobID))
	return ""
}

func (s *courseService) indexCourse(ctx context.Context, course *model.Course) string {
	if s.search == nil {
		metrics.IngestionWarnings.WithLabelValues("search").Inc()
		return "搜索索引不可用，课程暂不可被搜索"
	}
	err := s.search.IndexDocument(ctx, course.CourseID, map[string]interface{}{
		"course_id":         course.CourseID,
		"title":             course.Title,
		"description":       course.Description,
		"short_description": course.ShortDescription,
		"teacher_id":        course.TeacherID,
		"thumbnail":         course.Thumbnail,
		"created_at":        course.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		metrics.IngestionWarnings.WithLabelValues("search").Inc()
		s.logger.Warn("写入搜索索引失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return "写入搜索索引失败，课程暂不可被搜索"
	}
	return ""
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseSummaryResponse, int64, error) {
	courses, total, err := s.repo.Course.List(ctx, req.TeacherID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseSummaryResponse, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		result = append(result, dto.CourseSummaryResponse{
			ID:               c.CourseID,
			Title:            c.Title,
			ShortDescription: c.ShortDescription,
			Thumbnail:        c.Thumbnail,
			DemoVideoURL:     c.DemoVideoURL,
			TeacherID:        c.TeacherID,
			LectureCount:     len(c.Lectures),
			AverageRating:    c.AverageRating,
			RatingCount:      c.RatingCount,
			CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

// ────────────────────── Get ──────────────────────

// Get 返回按调用方身份裁剪后的课程视图
func (s *courseService) Get(ctx context.Context, id string, caller *Caller) (dto.CourseView, error) {
	course, err := s.loadCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.resolver.Resolve(ctx, course, caller) == AccessFull {
		return toCourseFull(course), nil
	}
	return toCourseDemo(course), nil
}

// ────────────────────── MarkTranscoded ──────────────────────

// MarkTranscoded 转码完成回调：回填完整视频地址
func (s *courseService) MarkTranscoded(ctx context.Context, req *dto.TranscodeCompleteRequest, caller *Caller) (*dto.CourseFullResponse, error) {
	course, err := mutateCourse(ctx, s.repo.Course, req.CourseID, s.maxRetries, "transcode", s.logger, func(c *model.Course) error {
		if c.FullVideoURL == req.VideoURL {
			return errNoChange
		}
		c.FullVideoURL = req.VideoURL
		if caller != nil {
			c.UpdatedBy = &caller.UserID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("转码结果已回填", zap.String("course_id", course.CourseID))
	return toCourseFull(course), nil
}

// ────────────────────── 内部辅助 ──────────────────────

func (s *courseService) loadCourse(ctx context.Context, id string) (*model.Course, error) {
	return loadCourse(ctx, s.repo.Course, id, s.logger)
}

func loadCourse(ctx context.Context, repo repository.CourseRepository, id string, logger *zap.Logger) (*model.Course, error) {
	if !validCourseID(id) {
		return nil, ErrCourseNotFound
	}
	course, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		logger.Error("查询课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, err
	}
	return course, nil
}

// canManageCourse 课程所有者或管理员
func canManageCourse(caller *Caller, course *model.Course) bool {
	if caller == nil {
		return false
	}
	return caller.IsAdmin() || caller.UserID == course.TeacherID
}

func toCourseDemo(c *model.Course) *dto.CourseDemoResponse {
	return &dto.CourseDemoResponse{
		Title:            c.Title,
		Description:      c.Description,
		DemoVideoURL:     c.DemoVideoURL,
		ShortDescription: c.ShortDescription,
		Resources:        append([]string{}, c.Resources...),
		Access:           AccessDemo,
	}
}

func toCourseFull(c *model.Course) *dto.CourseFullResponse {
	lectures := make([]dto.LectureResponse, 0, len(c.Lectures))
	for i := range c.Lectures {
		lectures = append(lectures, toLectureResponse(&c.Lectures[i], i))
	}
	ratings := make([]dto.RatingEntry, 0, len(c.Ratings))
	for _, r := range c.Ratings {
		ratings = append(ratings, dto.RatingEntry{
			RaterID: r.RaterID,
			Rating:  r.Value,
			RatedAt: r.RatedAt.Format(time.RFC3339),
		})
	}

	return &dto.CourseFullResponse{
		ID:               c.CourseID,
		Title:            c.Title,
		Description:      c.Description,
		ShortDescription: c.ShortDescription,
		Thumbnail:        c.Thumbnail,
		DemoVideoURL:     c.DemoVideoURL,
		FullVideoURL:     c.FullVideoURL,
		TeacherID:        c.TeacherID,
		Lectures:         lectures,
		Ratings:          ratings,
		AverageRating:    c.AverageRating,
		RatingCount:      c.RatingCount,
		Resources:        append([]string{}, c.Resources...),
		Access:           AccessFull,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
}

func toLectureResponse(l *model.Lecture, position int) dto.LectureResponse {
	return dto.LectureResponse{
		ID:        l.ID,
		Title:     l.Title,
		VideoURL:  l.VideoURL,
		Thumbnail: l.Thumbnail,
		Position:  position,
	}
}
