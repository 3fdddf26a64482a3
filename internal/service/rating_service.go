package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
)

// ── 评分模块业务错误 ──

var (
	ErrInvalidRating  = errors.New("评分必须是 1 到 5 之间的整数")
	ErrNotEnrolled    = errors.New("仅已选课学员可评分")
	ErrRatingConflict = ErrConcurrencyConflict
)

const (
	minRatingValue = 1
	maxRatingValue = 5
)

// RatingService 评分业务接口
type RatingService interface {
	// Submit 写入或覆盖调用方的评分，返回最新均分与人数
	Submit(ctx context.Context, caller *Caller, courseID string, rating int) (*dto.RatingAggregateResponse, error)
}

type ratingService struct {
	repo        *repository.Repository
	enrollments EnrollmentChecker
	maxRetries  int
	logger      *zap.Logger
}

// NewRatingService 创建 RatingService 实例
func NewRatingService(repo *repository.Repository, enrollments EnrollmentChecker, maxRetries int, logger *zap.Logger) RatingService {
	return &ratingService{repo: repo, enrollments: enrollments, maxRetries: maxRetries, logger: logger}
}

// Submit 评分写入：读取 → 覆盖/追加 → 重算 → 按版本写回
// 并发提交由版本号检测，冲突时基于最新文档重放，不会丢失其他学员的评分
func (s *ratingService) Submit(ctx context.Context, caller *Caller, courseID string, rating int) (*dto.RatingAggregateResponse, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if rating < minRatingValue || rating > maxRatingValue {
		return nil, ErrInvalidRating
	}

	if _, err := loadCourse(ctx, s.repo.Course, courseID, s.logger); err != nil {
		return nil, err
	}

	enrolled, err := s.enrollments.Exists(ctx, caller.UserID, courseID)
	if err != nil {
		s.logger.Warn("评分前选课校验失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	now := time.Now()
	course, err := mutateCourse(ctx, s.repo.Course, courseID, s.maxRetries, "rating", s.logger, func(c *model.Course) error {
		c.UpsertRating(caller.UserID, rating, now)
		c.UpdatedBy = &caller.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("评分已提交",
		zap.String("course_id", courseID),
		zap.String("user_id", caller.UserID),
		zap.Int("rating", rating),
		zap.Float64("average", course.AverageRating),
	)
	return &dto.RatingAggregateResponse{
		AverageRating: course.AverageRating,
		RatingCount:   course.RatingCount,
	}, nil
}
