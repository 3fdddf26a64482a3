package search

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"edustream/backend/config"
	pkgerrors "edustream/backend/pkg/errors"
)

// Indexer 课程元数据写入搜索索引
// 只负责推送文档，检索与排序由搜索服务负责
type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewIndexer 创建 Elasticsearch 索引写入器
func NewIndexer(cfg *config.SearchConfig, logger *zap.Logger) (*Indexer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("创建搜索客户端失败: %w", err)
	}
	return &Indexer{es: es, index: cfg.Index, logger: logger}, nil
}

// IndexDocument 写入（覆盖）文档并刷新索引，使其立即可被检索
func (i *Indexer) IndexDocument(ctx context.Context, id string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("序列化索引文档失败: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("%w: 写入搜索索引失败: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%w: 搜索索引返回 %s: %s", pkgerrors.ErrUpstreamUnavailable, res.Status(), msg)
	}

	i.logger.Debug("课程已写入搜索索引", zap.String("index", i.index), zap.String("id", id))
	return nil
}
