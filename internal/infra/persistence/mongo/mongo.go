package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sink 每条记录一次 InsertOne,不建唯一索引,重复运行会产生重复文档
type Sink struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// Connect 连接并 ping,失败时不返回半初始化的 Sink
func Connect(ctx context.Context, cfg config.MongoConfig) (*Sink, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Sink{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    timeout,
	}, nil
}

func (s *Sink) Name() string { return "mongo" }

func (s *Sink) Save(ctx context.Context, rec model.TireRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert tire: %w", err)
	}
	return nil
}

// Count 按零售商统计文档数, retailer 为空时统计全部
func (s *Sink) Count(ctx context.Context, retailer string) (int64, error) {
	filter := bson.M{}
	if retailer != "" {
		filter["retailer"] = retailer
	}
	return s.collection.CountDocuments(ctx, filter)
}

func (s *Sink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
