package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：课程文档已被其他请求修改（version 不匹配）
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrUpstreamUnavailable 外部依赖（对象存储、队列、搜索索引、选课库）不可用
	ErrUpstreamUnavailable = errors.New("外部依赖暂不可用")
)
