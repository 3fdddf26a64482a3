package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// MediaHandler 媒体上传 HTTP 处理器
type MediaHandler struct {
	mediaSvc service.MediaService
}

// NewMediaHandler 创建 MediaHandler
func NewMediaHandler(mediaSvc service.MediaService) *MediaHandler {
	return &MediaHandler{mediaSvc: mediaSvc}
}

// Upload 上传视频或图片，返回可访问的 URL
// POST /api/v1/courses/upload  (multipart: file, kind=video|image)
func (h *MediaHandler) Upload(c *gin.Context) {
	if !isMultipart(c) {
		response.BadRequest(c, 10001, "请使用 multipart/form-data 上传")
		return
	}

	media, f, err := openFormFile(c, "file")
	if err != nil {
		respondBindError(c, err)
		return
	}
	if media == nil {
		response.BadRequest(c, 15002, "上传文件为空")
		return
	}
	defer f.Close()

	resp, err := h.mediaSvc.Ingest(c.Request.Context(), media, c.PostForm("kind"))
	if err != nil {
		h.handleMediaError(c, err)
		return
	}

	response.Created(c, resp)
}

func (h *MediaHandler) handleMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidMediaKind):
		response.BadRequest(c, 15001, "媒体类型只能是 video 或 image")
	case errors.Is(err, service.ErrEmptyMedia):
		response.BadRequest(c, 15002, "上传文件为空")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
