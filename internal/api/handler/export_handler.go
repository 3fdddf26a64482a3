package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportCourseReport 导出课程学习报告
// GET /api/v1/courses/:id/report/export
func (h *ExportHandler) ExportCourseReport(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCourseReport(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	// 设置下载响应头
	encodedFilename := url.PathEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
