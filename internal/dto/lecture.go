package dto

// ── 讲次模块 DTO ──

// AddLectureRequest 新增讲次请求（JSON 方式，视频已上传）
type AddLectureRequest struct {
	Title     string `json:"title"     form:"title"     binding:"required,min=1,max=200"`
	VideoURL  string `json:"video_url" form:"video_url" binding:"omitempty,url"`
	Thumbnail string `json:"thumbnail" form:"thumbnail" binding:"omitempty,url"`
}

// ReplaceLectureRequest 替换讲次请求，字段为空表示不修改
type ReplaceLectureRequest struct {
	Title     *string `json:"title"     form:"title"     binding:"omitempty,min=1,max=200"`
	VideoURL  *string `json:"video_url" form:"video_url" binding:"omitempty,url"`
	Thumbnail *string `json:"thumbnail" form:"thumbnail" binding:"omitempty,url"`
}

// LectureResponse 讲次信息
type LectureResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	VideoURL  string `json:"video_url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Position  int    `json:"position"`
}
