package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edustream/backend/internal/dto"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/response"
)

// RatingHandler 评分 HTTP 处理器
type RatingHandler struct {
	ratingSvc service.RatingService
}

// NewRatingHandler 创建 RatingHandler
func NewRatingHandler(ratingSvc service.RatingService) *RatingHandler {
	return &RatingHandler{ratingSvc: ratingSvc}
}

// SubmitRating 提交评分
// POST /api/v1/courses/:id/rate
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	var req dto.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 14001, "评分必须是 1 到 5 之间的整数")
		return
	}

	agg, err := h.ratingSvc.Submit(c.Request.Context(), caller, c.Param("id"), *req.Rating)
	if err != nil {
		h.handleRatingError(c, err)
		return
	}

	response.OK(c, agg)
}

func (h *RatingHandler) handleRatingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRating):
		response.BadRequest(c, 14001, "评分必须是 1 到 5 之间的整数")
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 14002, "仅已选课学员可评分")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
