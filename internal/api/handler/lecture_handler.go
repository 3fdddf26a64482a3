package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// LectureHandler 讲次模块 HTTP 处理器
// 新增 / 替换支持两种请求体：JSON（视频已上传）或 multipart（字段 video 为视频文件）
type LectureHandler struct {
	lectureSvc service.LectureService
}

// NewLectureHandler 创建 LectureHandler
func NewLectureHandler(lectureSvc service.LectureService) *LectureHandler {
	return &LectureHandler{lectureSvc: lectureSvc}
}

// AddLecture 新增讲次
// POST /api/v1/courses/:id/lectures
func (h *LectureHandler) AddLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.AddLectureRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	video, ok := h.videoFromForm(c)
	if !ok {
		return
	}
	if video != nil {
		defer video.close()
	}

	lecture, err := h.lectureSvc.Add(c.Request.Context(), c.Param("id"), &req, video.media(), caller)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.Created(c, lecture)
}

// ReplaceLecture 原位替换讲次
// PUT /api/v1/courses/:id/lectures/:lectureId
func (h *LectureHandler) ReplaceLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.ReplaceLectureRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	video, ok := h.videoFromForm(c)
	if !ok {
		return
	}
	if video != nil {
		defer video.close()
	}

	lecture, err := h.lectureSvc.Replace(c.Request.Context(), c.Param("id"), c.Param("lectureId"), &req, video.media(), caller)
	if err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, lecture)
}

// RemoveLecture 删除讲次（不存在时同样返回成功）
// DELETE /api/v1/courses/:id/lectures/:lectureId
func (h *LectureHandler) RemoveLecture(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.lectureSvc.Remove(c.Request.Context(), c.Param("id"), c.Param("lectureId"), caller); err != nil {
		h.handleLectureError(c, err)
		return
	}

	response.OK(c, nil)
}

// uploadedVideo 已打开的上传文件，处理结束后关闭
type uploadedVideo struct {
	file   *service.MediaFile
	closer interface{ Close() error }
}

func (v *uploadedVideo) media() *service.MediaFile {
	if v == nil {
		return nil
	}
	return v.file
}

func (v *uploadedVideo) close() {
	_ = v.closer.Close()
}

// videoFromForm 仅 multipart 请求读取 video 字段
func (h *LectureHandler) videoFromForm(c *gin.Context) (*uploadedVideo, bool) {
	if !isMultipart(c) {
		return nil, true
	}
	media, f, err := openFormFile(c, "video")
	if err != nil {
		respondBindError(c, err)
		return nil, false
	}
	if media == nil {
		return nil, true
	}
	return &uploadedVideo{file: media, closer: f}, true
}

func (h *LectureHandler) handleLectureError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLectureNotFound):
		response.NotFound(c, 12001, "讲次不存在")
	case errors.Is(err, service.ErrLectureVideoRequired):
		response.BadRequest(c, 12002, "请提供讲次视频地址或上传视频文件")
	case errors.Is(err, service.ErrInvalidMediaKind), errors.Is(err, service.ErrEmptyMedia):
		response.BadRequest(c, 15001, err.Error())
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
