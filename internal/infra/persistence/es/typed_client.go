package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"github.com/rs/zerolog"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	logger zerolog.Logger
	// 仅用于读取索引名和映射,不存数据
	schemaDoc D
}

func InitTypedEsClient[D model.Document](cfg config.ElasticsearchConfig, logger zerolog.Logger) (TypedEsClient[D], error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Addresses: cfg.Addresses,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.Insecure},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch client: %w", err)
	}
	return &typedEsClient[D]{
		client: typedClient,
		logger: logger.With().Str("component", "elasticsearch").Logger(),
	}, nil
}

// CreateIndexWithMapping 索引不存在时按文档映射创建,已存在时跳过
func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	mapping := tec.schemaDoc.GetTypeMapping()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence in es: %w", err)
	}
	if exists {
		tec.logger.Info().Str("index", index).Msg("index already exists, skip create")
		return nil
	}

	if mapping == nil {
		_, err = tec.client.Indices.Create(index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(index).Mappings(mapping).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to create index in es: %w", err)
	}
	tec.logger.Info().Str("index", index).Msg("index created")
	return nil
}

// IndexDoc 写入单个文档,返回服务端生成的 id
func (tec *typedEsClient[D]) IndexDoc(ctx context.Context, doc D) (string, error) {
	resp, err := tec.client.Index(tec.schemaDoc.GetIndex()).
		Document(doc).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to index doc to es: %w", err)
	}
	return resp.Id_, nil
}

// BulkIndexDocs 批量写入,返回成功写入的数量;有文档失败时返回错误
func (tec *typedEsClient[D]) BulkIndexDocs(ctx context.Context, docs []D) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.schemaDoc.GetIndex(),
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			tec.logger.Error().Err(err).Msg("bulk indexer error")
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			_ = bi.Close(ctx)
			return 0, fmt.Errorf("failed to marshal document: %w", err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					tec.logger.Error().Err(err).Msg("failed to index document")
				} else {
					tec.logger.Error().Str("reason", res.Error.Reason).Msg("failed to index document")
				}
			},
		})
		if err != nil {
			_ = bi.Close(ctx)
			return 0, fmt.Errorf("failed to add document to bulk indexer: %w", err)
		}
	}

	// Close 会刷新剩余文档
	if err := bi.Close(ctx); err != nil {
		return 0, fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	stats := bi.Stats()
	tec.logger.Debug().Uint64("indexed", stats.NumIndexed).Uint64("failed", stats.NumFailed).Msg("bulk indexing completed")
	if stats.NumFailed > 0 {
		return int(stats.NumIndexed), fmt.Errorf("bulk indexing failed for %d of %d documents", stats.NumFailed, len(docs))
	}
	return int(stats.NumIndexed), nil
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.schemaDoc.GetIndex()).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count docs in es: %w", err)
	}
	return resp.Count, nil
}
