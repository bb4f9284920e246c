// Package notify publishes alert events to Redis for other processes on the desk
// (status bars, dashboards, home automation) to pick up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/wristguard/internal/alerting"
	"github.com/go-redis/redis/v8"
)

// Defaults for Config.
const (
	DefaultChannel = "wristguard:alerts"
	DefaultListKey = "wristguard:alerts:recent"
	DefaultListLen = 1000
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Channel is the pub/sub channel events are published on.
	Channel string
	// ListKey holds the most recent ListLen events, newest first.
	ListKey string
	ListLen int64
}

func (c *Config) applyDefaults() {
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
	if c.ListKey == "" {
		c.ListKey = DefaultListKey
	}
	if c.ListLen <= 0 {
		c.ListLen = DefaultListLen
	}
}

// Publisher is an alerting.Sink backed by Redis.
type Publisher struct {
	client *redis.Client
	cfg    Config
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	cfg.applyDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		MinIdleConns: 1,
		MaxRetries:   3,
		DialTimeout:  2 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Publisher{client: client, cfg: cfg}, nil
}

func (p *Publisher) Name() string { return "redis" }

// Handle publishes ev and records it in the recent list.
func (p *Publisher) Handle(ctx context.Context, ev alerting.Event) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.cfg.Channel, data)
		pipe.LPush(ctx, p.cfg.ListKey, data)
		pipe.LTrim(ctx, p.cfg.ListKey, 0, p.cfg.ListLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish event to redis: %w", err)
	}
	return nil
}

// Recent returns up to count of the most recently published events.
func (p *Publisher) Recent(ctx context.Context, count int64) ([]alerting.Event, error) {
	items, err := p.client.LRange(ctx, p.cfg.ListKey, 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	events := make([]alerting.Event, 0, len(items))
	for _, item := range items {
		var ev alerting.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue // skip entries written by something else
		}
		events = append(events, ev)
	}
	return events, nil
}

// Subscribe returns a subscription to the alert channel.
func (p *Publisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.cfg.Channel)
}

// Close closes the Redis connection pool.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func encodeEvent(ev alerting.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}
