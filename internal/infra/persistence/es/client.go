package es

import (
	"context"

	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
)

// TypedEsClient 按文档类型操作一个索引,索引名和映射来自文档本身
// 文档 id 由服务端生成,重复提交会产生重复文档
type TypedEsClient[D model.Document] interface {
	CreateIndexWithMapping(ctx context.Context) error
	IndexDoc(ctx context.Context, doc D) (string, error)
	BulkIndexDocs(ctx context.Context, docs []D) (int, error)
	CountDocs(ctx context.Context) (int64, error)
}
