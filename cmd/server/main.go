package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"edustream/backend/config"
	"edustream/backend/internal/api/handler"
	"edustream/backend/internal/api/middleware"
	"edustream/backend/internal/api/router"
	"edustream/backend/internal/repository"
	"edustream/backend/internal/service"
	"edustream/backend/pkg/database"
	"edustream/backend/pkg/jwt"
	applogger "edustream/backend/pkg/logger"
	"edustream/backend/pkg/redis"
	"edustream/backend/pkg/search"
	"edustream/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("EDU_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 外部协作方（均可选：连接失败时降级运行，不中断启动）
	// 只在非 nil 时赋给接口，避免 typed-nil
	var deps service.Collaborators
	var limiter middleware.RateLimiter

	rdb, err := redis.NewClient(&cfg.Redis, &cfg.Queue, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，转码队列与进度限流将不可用", zap.Error(err))
	} else {
		deps.Queue = rdb
		limiter = rdb
	}

	if store, err := storage.NewStore(&cfg.Storage, logger); err != nil {
		logger.Warn("对象存储初始化失败，上传功能将不可用", zap.Error(err))
	} else {
		deps.Blob = store
	}

	if indexer, err := search.NewIndexer(&cfg.Search, logger); err != nil {
		logger.Warn("搜索索引初始化失败，新课程将不会被索引", zap.Error(err))
	} else {
		deps.Search = indexer
	}

	// 5. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, db, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	// 讲次视频走同一端口上传，读写超时按大文件放宽
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
