package dto

// ── 播放进度 DTO ──

// RecordProgressRequest 上报播放进度
// time 使用指针以区分“未传”和 0
type RecordProgressRequest struct {
	Time *float64 `json:"time" binding:"required"`
}

// ProgressResponse 单讲进度
type ProgressResponse struct {
	CourseID  string  `json:"course_id"`
	LectureID string  `json:"lecture_id"`
	Time      float64 `json:"time"`
	UpdatedAt string  `json:"updated_at"`
}
