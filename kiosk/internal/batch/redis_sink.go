package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// RedisSink публикует батчи в канал Redis в виде JSON
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink создает sink с собственным клиентом
func NewRedisSink(addr, password string, db int, channel string) *RedisSink {
	return NewRedisSinkFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), channel)
}

// NewRedisSinkFromClient оборачивает готовый клиент
func NewRedisSinkFromClient(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// Ping проверяет доступность Redis
func (rs *RedisSink) Ping(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (rs *RedisSink) Consume(ctx context.Context, b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	receivers, err := rs.client.Publish(ctx, rs.channel, data).Result()
	if err != nil {
		return fmt.Errorf("failed to publish batch to Redis: %w", err)
	}

	log.Printf("[BATCH] Published batch %d (%d records) to %s, receivers=%d",
		b.Seq, len(b.Records), rs.channel, receivers)
	return nil
}

func (rs *RedisSink) Close() error {
	return rs.client.Close()
}

// MultiSink передает батч каждому sink по очереди
type MultiSink []Sink

func (ms MultiSink) Consume(ctx context.Context, b Batch) error {
	var errs []error
	for _, s := range ms {
		if err := s.Consume(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
