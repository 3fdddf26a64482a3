package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
	"edustream/backend/pkg/metrics"
)

// ErrInvalidOffset 播放位置必须为非负有限数
var ErrInvalidOffset = errors.New("播放位置必须为非负数")

// ProgressService 播放进度业务接口
// 同一 (用户, 课程, 讲次) 只保留一条记录，后写覆盖先写
type ProgressService interface {
	Record(ctx context.Context, caller *Caller, courseID, lectureID string, offset float64) (*dto.ProgressResponse, error)
	List(ctx context.Context, caller *Caller, courseID string) ([]dto.ProgressResponse, error)
}

type progressService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProgressService 创建 ProgressService 实例
func NewProgressService(repo *repository.Repository, logger *zap.Logger) ProgressService {
	return &progressService{repo: repo, logger: logger}
}

// ────────────────────── Record ──────────────────────

func (s *progressService) Record(ctx context.Context, caller *Caller, courseID, lectureID string, offset float64) (*dto.ProgressResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) || offset < 0 {
		return nil, ErrInvalidOffset
	}

	course, err := loadCourse(ctx, s.repo.Course, courseID, s.logger)
	if err != nil {
		return nil, err
	}
	if course.LectureIndex(lectureID) < 0 {
		return nil, ErrLectureNotFound
	}

	p := &model.LectureProgress{
		UserID:        caller.UserID,
		CourseID:      courseID,
		LectureID:     lectureID,
		OffsetSeconds: offset,
		UpdatedAt:     time.Now(),
	}
	if err := s.repo.Progress.Upsert(ctx, p); err != nil {
		s.logger.Error("记录播放进度失败",
			zap.String("user_id", caller.UserID),
			zap.String("course_id", courseID),
			zap.String("lecture_id", lectureID),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.ProgressWrites.Inc()

	resp := toProgressResponse(p)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

// List 返回调用方在该课程下的全部讲次进度，最近更新在前
func (s *progressService) List(ctx context.Context, caller *Caller, courseID string) ([]dto.ProgressResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := loadCourse(ctx, s.repo.Course, courseID, s.logger); err != nil {
		return nil, err
	}

	records, err := s.repo.Progress.ListByUserAndCourse(ctx, caller.UserID, courseID)
	if err != nil {
		s.logger.Error("查询播放进度失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ProgressResponse, 0, len(records))
	for i := range records {
		result = append(result, toProgressResponse(&records[i]))
	}
	return result, nil
}

func toProgressResponse(p *model.LectureProgress) dto.ProgressResponse {
	return dto.ProgressResponse{
		CourseID:  p.CourseID,
		LectureID: p.LectureID,
		Time:      p.OffsetSeconds,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
