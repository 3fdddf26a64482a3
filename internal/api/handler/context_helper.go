package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// MustGetCaller 从 Gin 上下文中提取已认证的调用方。
// 如果 JWT 中间件未注入 user_id，写入 401 响应并返回 false。
// 调用方应在 ok=false 时直接 return。
func MustGetCaller(c *gin.Context) (*service.Caller, bool) {
	caller := OptionalCaller(c)
	if caller == nil {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return caller, true
}

// OptionalCaller 可选认证路由上提取调用方，匿名时返回 nil
func OptionalCaller(c *gin.Context) *service.Caller {
	uid := c.GetString("user_id")
	if uid == "" {
		return nil
	}
	return &service.Caller{UserID: uid, Role: c.GetString("role")}
}

// respondBindError 请求体超限返回 413，其余绑定错误返回 400
func respondBindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.BadRequest(c, 10001, "参数校验失败")
}

// isMultipart 请求是否为 multipart/form-data
func isMultipart(c *gin.Context) bool {
	return c.ContentType() == "multipart/form-data"
}

// openFormFile 打开可选的上传文件字段；字段缺失时返回 (nil, nil, nil)
func openFormFile(c *gin.Context, field string) (*service.MediaFile, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.MediaFile{Reader: f, Size: fh.Size, Filename: fh.Filename}, f, nil
}

// handleCommonError 各模块共享的错误映射，返回 false 表示未识别
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 11001, "课程不存在")
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Forbidden(c, 11002, "仅课程所有者或管理员可执行此操作")
	case errors.Is(err, service.ErrConcurrencyConflict):
		response.Conflict(c, 11004, "课程正被并发修改，请稍后重试")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		response.ServiceUnavailable(c, 11005, "依赖服务暂不可用，请稍后重试")
	default:
		return false
	}
	return true
}
