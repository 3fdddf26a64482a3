package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// ProgressHandler 播放进度 HTTP 处理器
type ProgressHandler struct {
	progressSvc service.ProgressService
}

// NewProgressHandler 创建 ProgressHandler
func NewProgressHandler(progressSvc service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc}
}

// RecordProgress 上报播放进度
// POST /api/v1/courses/:id/lectures/:lectureId/progress
func (h *ProgressHandler) RecordProgress(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.progressSvc.Record(c.Request.Context(), caller, c.Param("id"), c.Param("lectureId"), *req.Time)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, resp)
}

// ListProgress 当前用户在课程下的播放进度
// GET /api/v1/courses/:id/progress
func (h *ProgressHandler) ListProgress(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.progressSvc.List(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *ProgressHandler) handleProgressError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidOffset):
		response.BadRequest(c, 13001, "播放位置必须为非负数")
	case errors.Is(err, service.ErrLectureNotFound):
		response.NotFound(c, 12001, "讲次不存在")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
