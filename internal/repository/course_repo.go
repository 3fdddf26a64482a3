package repository

import (
	"context"

	"gorm.io/gorm"

	"edustream/backend/internal/model"
	pkgerrors "edustream/backend/pkg/errors"
)

// CourseRepository 课程文档数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, teacherID string, offset, limit int) ([]model.Course, int64, error)
	// Update 整文档写回，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, course *model.Course) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	// JSONSlice 为 nil 时会序列化为 null，违反 NOT NULL 约束
	if course.Lectures == nil {
		course.Lectures = []model.Lecture{}
	}
	if course.Ratings == nil {
		course.Ratings = []model.Rating{}
	}
	if course.Resources == nil {
		course.Resources = []string{}
	}
	if course.Version == 0 {
		course.Version = 1
	}
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) List(ctx context.Context, teacherID string, offset, limit int) ([]model.Course, int64, error) {
	var (
		courses []model.Course
		total   int64
	)

	db := r.db.WithContext(ctx).Model(&model.Course{})
	if teacherID != "" {
		db = db.Where("teacher_id = ?", teacherID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&courses).Error
	return courses, total, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	oldVersion := course.Version
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ? AND version = ?", course.CourseID, oldVersion).
		Updates(map[string]interface{}{
			"title":             course.Title,
			"description":       course.Description,
			"short_description": course.ShortDescription,
			"thumbnail":         course.Thumbnail,
			"demo_video_url":    course.DemoVideoURL,
			"source_video_url":  course.SourceVideoURL,
			"full_video_url":    course.FullVideoURL,
			"lectures":          course.Lectures,
			"ratings":           course.Ratings,
			"resources":         course.Resources,
			"average_rating":    course.AverageRating,
			"rating_count":      course.RatingCount,
			"updated_by":        course.UpdatedBy,
			"updated_at":        gorm.Expr("NOW()"),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	course.Version = oldVersion + 1
	return nil
}
