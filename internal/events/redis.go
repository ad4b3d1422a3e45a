package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tOgg1/imagepreview/internal/logging"
)

const defaultRedisChannel = "imagepreview:events"

// RedisBridgeConfig configures the Redis pub/sub bridge.
type RedisBridgeConfig struct {
	Addr        string
	Addrs       []string
	Username    string
	Password    string
	DB          int
	Channel     string
	DialTimeout time.Duration
}

// RedisBridge carries events between processes over a Redis pub/sub
// channel. Events received from Redis are re-published on the local
// Publisher; Publish sends events to every bridged process, including this one.
type RedisBridge struct {
	client  redis.UniversalClient
	channel string
	local   Publisher
	logger  zerolog.Logger
}

// NewRedisBridge creates a bridge that relays into local.
func NewRedisBridge(cfg RedisBridgeConfig, local Publisher) (*RedisBridge, error) {
	if local == nil {
		return nil, errors.New("local publisher is required")
	}
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = defaultRedisChannel
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		Username:    strings.TrimSpace(cfg.Username),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  2,
	})

	return &RedisBridge{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logging.Component("redis-bridge"),
	}, nil
}

// Ping checks connectivity to Redis.
func (b *RedisBridge) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish sends an event to the Redis channel.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return errors.New("event is required")
	}
	if event.Channel() == "" {
		return ErrMissingChannel
	}
	payload, err := Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s to redis: %w", event.Kind(), err)
	}
	return nil
}

// Run subscribes to the Redis channel and relays events until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to redis channel %s: %w", b.channel, err)
	}

	b.logger.Info().Str("channel", b.channel).Msg("redis bridge listening")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.relay(ctx, msg.Payload)
		}
	}
}

func (b *RedisBridge) relay(ctx context.Context, payload string) {
	event, err := Unmarshal([]byte(payload))
	if err != nil {
		b.logger.Warn().Err(err).Str("payload", logging.Redact(payload)).Msg("dropping malformed event")
		return
	}
	b.local.Publish(ctx, event)
}

// Close releases the Redis client.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
