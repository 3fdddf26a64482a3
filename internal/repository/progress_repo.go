package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edustream/backend/internal/model"
)

// ProgressRepository 播放进度数据访问接口
type ProgressRepository interface {
	// Upsert 按 (user, course, lecture) 写入进度，已存在则无条件覆盖 offset 与 updated_at
	Upsert(ctx context.Context, p *model.LectureProgress) error
	ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]model.LectureProgress, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.LectureProgress, error)
}

type progressRepo struct {
	db *gorm.DB
}

// NewProgressRepo 创建 ProgressRepository 实例
func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Upsert(ctx context.Context, p *model.LectureProgress) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "course_id"},
				{Name: "lecture_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"offset_seconds", "updated_at"}),
		}).
		Create(p).Error
}

func (r *progressRepo) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]model.LectureProgress, error) {
	var list []model.LectureProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

func (r *progressRepo) ListByCourse(ctx context.Context, courseID string) ([]model.LectureProgress, error) {
	var list []model.LectureProgress
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Find(&list).Error
	return list, err
}
