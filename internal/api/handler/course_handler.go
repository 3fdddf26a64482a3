package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListCourses 课程目录
// GET /api/v1/courses?teacher_id=&page=&page_size=
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var req dto.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.courseSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetCourse 课程详情，按调用方身份返回试看或完整视图
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	view, err := h.courseSvc.Get(c.Request.Context(), c.Param("id"), OptionalCaller(c))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, view)
}

// CreateCourse 创建课程
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	resp, err := h.courseSvc.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, resp)
}

// CompleteTranscode 转码服务回调
// POST /api/v1/internal/transcode/complete
func (h *CourseHandler) CompleteTranscode(c *gin.Context) {
	var req dto.TranscodeCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.MarkTranscoded(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrCourseCreateForbidden) {
		response.Forbidden(c, 11003, "仅教师或管理员可创建课程")
		return
	}
	if handleCommonError(c, err) {
		return
	}
	response.InternalError(c)
}
