/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/aircore/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus implements a Redis pub/sub backed event bus for distributed
// deployments that already run Redis for caching and leader election and
// would rather not stand up NATS JetStream as well.
type RedisBus struct {
	client   *redis.Client
	logger   zerolog.Logger
	fallback *events.Bus
	nodeID   string

	mu   sync.RWMutex
	subs map[events.EventType][]events.Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	useFallback bool
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	URL      string
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisBus creates a Redis-backed event bus. Falls back to an in-memory
// bus if the initial ping to Redis fails; later publish failures are only
// logged, with no fallback.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis event bus unavailable, using in-memory fallback")
		cancel()
		return &RedisBus{
			logger:      logger,
			fallback:    events.NewBus(),
			nodeID:      nodeID,
			subs:        make(map[events.EventType][]events.Subscriber),
			ctx:         context.Background(),
			useFallback: true,
		}, nil
	}

	logger.Info().Str("addr", opts.Addr).Msg("Redis event bus initialized")

	return &RedisBus{
		client:   client,
		logger:   logger,
		fallback: events.NewBus(),
		nodeID:   nodeID,
		subs:     make(map[events.EventType][]events.Subscriber),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Subscribe registers a subscriber for an event type, starting a Redis
// channel receiver the first time that event type is subscribed to.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	if rb.useFallback {
		return rb.fallback.Subscribe(eventType)
	}

	rb.mu.Lock()
	first := len(rb.subs[eventType]) == 0
	sub := make(events.Subscriber, 100)
	rb.subs[eventType] = append(rb.subs[eventType], sub)
	rb.mu.Unlock()

	if first {
		rb.wg.Add(1)
		go rb.receiveMessages(eventType)
	}

	return sub
}

func (rb *RedisBus) receiveMessages(eventType events.EventType) {
	defer rb.wg.Done()

	channel := redisChannel(eventType)
	pubsub := rb.client.Subscribe(rb.ctx, channel)
	defer pubsub.Close()

	rb.logger.Debug().Str("event_type", string(eventType)).Msg("started Redis message receiver")

	ch := pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			parsed, err := unmarshalMessage([]byte(msg.Payload))
			if err != nil {
				rb.logger.Error().Err(err).Msg("failed to unmarshal redis message")
				continue
			}
			if parsed.NodeID == rb.nodeID {
				continue
			}

			rb.mu.RLock()
			subs := rb.subs[eventType]
			rb.mu.RUnlock()

			for _, sub := range subs {
				select {
				case sub <- parsed.Payload:
				default:
					rb.logger.Warn().Str("event_type", string(eventType)).Msg("subscriber channel full, dropping event")
				}
			}
		}
	}
}

// Publish sends an event payload to all subscribers, local and remote.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.fallback.Publish(eventType, payload)

	if rb.useFallback {
		return
	}

	data, err := marshalMessage(eventType, payload, rb.nodeID)
	if err != nil {
		rb.logger.Error().Err(err).Msg("failed to marshal redis message")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()

	if err := rb.client.Publish(ctx, redisChannel(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to publish to redis")
	}
}

// Unsubscribe removes a subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	if rb.useFallback {
		rb.fallback.Unsubscribe(eventType, sub)
		return
	}

	rb.mu.Lock()
	subs := rb.subs[eventType]
	for i, s := range subs {
		if s == sub {
			rb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	rb.mu.Unlock()
	close(sub)
}

// Close closes the Redis connection and stops all receivers.
func (rb *RedisBus) Close() error {
	if rb.cancel != nil {
		rb.cancel()
	}
	rb.wg.Wait()
	if rb.client != nil {
		return rb.client.Close()
	}
	return nil
}

func redisChannel(eventType events.EventType) string {
	return fmt.Sprintf("aircore.events.%s", eventType)
}

// redisMessage represents a message published to Redis.
type redisMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}

func marshalMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	msg := redisMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    nodeID,
	}
	return json.Marshal(msg)
}

func unmarshalMessage(data []byte) (*redisMessage, error) {
	var msg redisMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal redis message: %w", err)
	}
	return &msg, nil
}
