package model

import (
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Document 所有写入 Elasticsearch 的文档结构体都要实现这两个函数
type Document interface {
	*TireRecord
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
}
