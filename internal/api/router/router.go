package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edustream/backend/config"
	"edustream/backend/internal/api/handler"
	"edustream/backend/internal/api/middleware"
	"edustream/backend/pkg/jwt"
)

// jsonBodyLimit 非上传接口的请求体上限
const jsonBodyLimit = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时进度上报不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 / 指标 ──
	r.GET("/health", healthCheck(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jsonLimit := middleware.BodyLimit(jsonBodyLimit)
	uploadLimit := middleware.BodyLimit(cfg.Course.UploadMaxBytes)
	progressLimit := middleware.RateLimit(limiter, cfg.Course.ProgressRateLimit, cfg.Course.ProgressRateWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 课程浏览（可选认证）
		public := v1.Group("/courses")
		public.Use(middleware.OptionalJWTAuth(jwtMgr))
		{
			public.GET("", h.Course.ListCourses)
			public.GET("/:id", h.Course.GetCourse)
		}

		// 需要认证的路由
		courses := v1.Group("/courses")
		courses.Use(middleware.JWTAuth(jwtMgr))
		{
			courses.POST("", jsonLimit, middleware.RoleAuth("teacher", "admin"), h.Course.CreateCourse)
			courses.POST("/upload", uploadLimit, middleware.RoleAuth("teacher", "admin"), h.Media.Upload)

			// 讲次（所有者或管理员，Service 层鉴权）
			courses.POST("/:id/lectures", uploadLimit, h.Lecture.AddLecture)
			courses.PUT("/:id/lectures/:lectureId", uploadLimit, h.Lecture.ReplaceLecture)
			courses.DELETE("/:id/lectures/:lectureId", h.Lecture.RemoveLecture)

			// 学习
			courses.POST("/:id/rate", jsonLimit, h.Rating.SubmitRating)
			courses.GET("/:id/progress", h.Progress.ListProgress)
			courses.POST("/:id/lectures/:lectureId/progress", jsonLimit, progressLimit, h.Progress.RecordProgress)

			// 导出
			courses.GET("/:id/report/export", h.Export.ExportCourseReport)
		}

		// 内部回调（转码服务）
		internal := v1.Group("/internal")
		internal.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth("admin", "service"))
		{
			internal.POST("/transcode/complete", jsonLimit, h.Course.CompleteTranscode)
		}
	}

	return r
}

// healthCheck 数据库可达即视为健康；Redis / 存储 / 搜索均可降级，不参与判定
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				err = sqlDB.PingContext(ctx)
				cancel()
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
