package handler

import "edustream/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Course   *CourseHandler
	Lecture  *LectureHandler
	Progress *ProgressHandler
	Rating   *RatingHandler
	Media    *MediaHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Course:   NewCourseHandler(svc.Course),
		Lecture:  NewLectureHandler(svc.Lecture),
		Progress: NewProgressHandler(svc.Progress),
		Rating:   NewRatingHandler(svc.Rating),
		Media:    NewMediaHandler(svc.Media),
		Export:   NewExportHandler(svc.Export),
	}
}
