package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edustream/backend/config"
	pkgerrors "edustream/backend/pkg/errors"
)

// Client Redis 客户端封装
// 用于转码任务队列（Stream）与接口限流（滑动窗口）
type Client struct {
	rdb    *goredis.Client
	maxLen int64
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, queueCfg *config.QueueConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, maxLen: queueCfg.MaxLen, logger: logger}, nil
}

// ── 工作队列 ──

const queuePrefix = "queue:"

// Enqueue 将任务写入指定队列（Redis Stream），返回消息 ID
// 消息体为 JSON，字段 payload；消费方按 XREADGROUP 读取
func (c *Client) Enqueue(ctx context.Context, queueName string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化任务失败: %w", err)
	}

	args := &goredis.XAddArgs{
		Stream: queuePrefix + queueName,
		Values: map[string]interface{}{
			"job_id":      uuid.New().String(),
			"payload":     string(body),
			"enqueued_at": strconv.FormatInt(time.Now().UnixMilli(), 10),
		},
	}
	if c.maxLen > 0 {
		args.MaxLen = c.maxLen
		args.Approx = true
	}

	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("%w: 写入队列 %s 失败: %v", pkgerrors.ErrUpstreamUnavailable, queueName, err)
	}
	return id, nil
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流：窗口内请求数未超过 limit 时返回 true
// 基于有序集合，score 为请求时间戳（毫秒）
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.New().String()[:8]

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixMilli()), Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.PExpire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
