package es

import (
	"context"
	"sync"

	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
)

// Sink 把规范记录写入 Elasticsearch
// batchSize 大于 1 时先缓存,满批或 Flush 时批量写入
type Sink struct {
	client    TypedEsClient[*model.TireRecord]
	batchSize int

	mu  sync.Mutex
	buf []*model.TireRecord
}

func NewSink(client TypedEsClient[*model.TireRecord], batchSize int) *Sink {
	return &Sink{client: client, batchSize: batchSize}
}

func (s *Sink) Name() string { return "elasticsearch" }

func (s *Sink) Save(ctx context.Context, rec model.TireRecord) error {
	if s.batchSize <= 1 {
		_, err := s.client.IndexDoc(ctx, &rec)
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, &rec)
	if len(s.buf) < s.batchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Sink) flushLocked(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	docs := s.buf
	s.buf = nil
	_, err := s.client.BulkIndexDocs(ctx, docs)
	return err
}
