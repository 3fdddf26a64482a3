package dto

// ── 课程模块 DTO ──

// 访问级别
const (
	AccessDemo = "demo"
	AccessFull = "full"
)

// CreateCourseRequest 创建课程请求
type CreateCourseRequest struct {
	Title            string         `json:"title"             binding:"required,min=1,max=200"`
	Description      string         `json:"description"       binding:"omitempty,max=20000"`
	ShortDescription string         `json:"short_description" binding:"omitempty,max=500"`
	Thumbnail        string         `json:"thumbnail"         binding:"omitempty,url"`
	DemoVideoURL     string         `json:"demo_video_url"    binding:"omitempty,url"`
	VideoURL         string         `json:"video_url"         binding:"omitempty,url"` // 完整视频源文件，转码后回填 full_video_url
	TeacherID        string         `json:"teacher_id"        binding:"omitempty,max=64"` // 仅管理员可代为指定
	Lectures         []LectureInput `json:"lectures"          binding:"omitempty,dive"`
	Resources        []string       `json:"resources"         binding:"omitempty,dive,url"`
}

// LectureInput 创建课程时附带的初始讲次
type LectureInput struct {
	Title     string `json:"title"     binding:"required,min=1,max=200"`
	VideoURL  string `json:"video_url" binding:"required,url"`
	Thumbnail string `json:"thumbnail" binding:"omitempty,url"`
}

// CourseListRequest 课程列表查询参数
type CourseListRequest struct {
	PaginationRequest
	TeacherID string `form:"teacher_id"`
}

// CreateCourseResponse 创建课程响应
// warnings 记录队列 / 索引等旁路失败，课程本身已持久化
type CreateCourseResponse struct {
	Course   *CourseFullResponse `json:"course"`
	Warnings []string            `json:"warnings,omitempty"`
}

// CourseView 按访问级别裁剪后的课程视图
type CourseView interface {
	AccessLevel() string
}

// CourseDemoResponse 试看视图：只包含公开字段
type CourseDemoResponse struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	DemoVideoURL     string   `json:"demo_video_url"`
	ShortDescription string   `json:"short_description"`
	Resources        []string `json:"resources"`
	Access           string   `json:"access"`
}

// AccessLevel 实现 CourseView
func (r *CourseDemoResponse) AccessLevel() string { return r.Access }

// CourseFullResponse 完整视图
type CourseFullResponse struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"short_description"`
	Thumbnail        string            `json:"thumbnail"`
	DemoVideoURL     string            `json:"demo_video_url"`
	FullVideoURL     string            `json:"full_video_url"`
	TeacherID        string            `json:"teacher_id"`
	Lectures         []LectureResponse `json:"lectures"`
	Ratings          []RatingEntry     `json:"ratings"`
	AverageRating    float64           `json:"average_rating"`
	RatingCount      int               `json:"rating_count"`
	Resources        []string          `json:"resources"`
	Access           string            `json:"access"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}

// AccessLevel 实现 CourseView
func (r *CourseFullResponse) AccessLevel() string { return r.Access }

// CourseSummaryResponse 列表项（目录展示，不含讲次与评分明细）
type CourseSummaryResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	ShortDescription string  `json:"short_description"`
	Thumbnail        string  `json:"thumbnail"`
	DemoVideoURL     string  `json:"demo_video_url"`
	TeacherID        string  `json:"teacher_id"`
	LectureCount     int     `json:"lecture_count"`
	AverageRating    float64 `json:"average_rating"`
	RatingCount      int     `json:"rating_count"`
	CreatedAt        string  `json:"created_at"`
}

// TranscodeCompleteRequest 转码完成回调
type TranscodeCompleteRequest struct {
	CourseID string `json:"course_id" binding:"required"`
	VideoURL string `json:"video_url" binding:"required,url"`
}
