package sink

import (
	"context"
	"encoding/json"
	"time"

	model_reading "nas-collector/models/reading"
	"nas-collector/pkg/rabbitmq"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const MsgType = "nas"

// RedisSink keeps the latest reading under one key. Older readings are
// overwritten, and the key expires if the collector stops.
type RedisSink struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

func NewRedisSink(c *redis.Client, key string, ttl time.Duration) *RedisSink {
	return &RedisSink{Client: c, Key: key, TTL: ttl}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, r model_reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode reading")
	}
	return s.Client.Set(ctx, s.Key, payload, s.TTL).Err()
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

type RabbitMQSink struct {
	Publisher Publisher
}

func NewRabbitMQSink(p Publisher) *RabbitMQSink {
	return &RabbitMQSink{Publisher: p}
}

func (s *RabbitMQSink) Name() string { return "rabbitmq" }

func (s *RabbitMQSink) Send(ctx context.Context, r model_reading.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode reading")
	}
	body, err := rabbitmq.EncodeMsg(MsgType, payload, r.Time)
	if err != nil {
		return err
	}
	return s.Publisher.Publish(ctx, body)
}
