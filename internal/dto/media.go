package dto

// ── 媒体上传 DTO ──

// UploadResponse 上传结果
type UploadResponse struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}
