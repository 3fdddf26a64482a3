package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edustream/backend/internal/model"
	"edustream/backend/internal/repository"
	pkgerrors "edustream/backend/pkg/errors"
	"edustream/backend/pkg/metrics"
)

// ErrConcurrencyConflict 课程在重试上限内仍被并发修改
var ErrConcurrencyConflict = errors.New("课程正被并发修改，请稍后重试")

// errNoChange 由 apply 返回，表示无需写回（例如删除不存在的讲次）
var errNoChange = errors.New("no change")

// mutateCourse 读取课程 → apply 修改 → 按版本号写回
// 版本冲突时重新读取并重放 apply，最多 maxAttempts 次；apply 必须可重复执行
func mutateCourse(
	ctx context.Context,
	repo repository.CourseRepository,
	courseID string,
	maxAttempts int,
	op string,
	logger *zap.Logger,
	apply func(c *model.Course) error,
) (*model.Course, error) {
	if !validCourseID(courseID) {
		return nil, ErrCourseNotFound
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		course, err := repo.GetByID(ctx, courseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCourseNotFound
			}
			logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
			return nil, err
		}

		if err := apply(course); err != nil {
			if errors.Is(err, errNoChange) {
				return course, nil
			}
			return nil, err
		}

		err = repo.Update(ctx, course)
		if err == nil {
			return course, nil
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			logger.Error("更新课程失败", zap.String("course_id", courseID), zap.String("op", op), zap.Error(err))
			return nil, err
		}

		metrics.CourseWriteConflicts.WithLabelValues(op).Inc()
		logger.Debug("课程版本冲突，重试",
			zap.String("course_id", courseID),
			zap.String("op", op),
			zap.Int("attempt", attempt),
		)
	}

	logger.Warn("课程并发修改超过重试上限",
		zap.String("course_id", courseID),
		zap.String("op", op),
		zap.Int("max_attempts", maxAttempts),
	)
	return nil, ErrConcurrencyConflict
}
