package dto

// ── 评分模块 DTO ──

// SubmitRatingRequest 提交评分
// rating 须为 1~5 的整数，小数在 JSON 绑定阶段即被拒绝
type SubmitRatingRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

// RatingAggregateResponse 评分汇总
type RatingAggregateResponse struct {
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// RatingEntry 评分明细（完整视图中返回）
type RatingEntry struct {
	RaterID string `json:"rater_id"`
	Rating  int    `json:"rating"`
	RatedAt string `json:"rated_at"`
}
