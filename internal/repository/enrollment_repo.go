package repository

import (
	"context"

	"gorm.io/gorm"

	"edustream/backend/internal/model"
)

// EnrollmentRepository 选课记录只读访问接口
// 选课记录由支付服务维护，本服务只判断是否存在
type EnrollmentRepository interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
