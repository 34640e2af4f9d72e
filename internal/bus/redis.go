package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus delivers notifications over Redis Pub/Sub. One Redis channel per
// topic; subscribers on the same channel each receive every message, in
// publish order. Messages sent while nobody listens are gone, which matches
// the advisory nature of panel notifications.
type RedisBus struct {
	cfg    RedisConfig
	logger *slog.Logger

	mu     sync.Mutex
	client *redis.Client
	subs   []*redisSubscription
	st     state
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// OnError receives transport failures observed after Connect. The bus
	// never reconnects on its own; the owning session decides.
	OnError func(error)
}

func NewRedisBus(cfg RedisConfig, logger *slog.Logger) *RedisBus {
	return &RedisBus{cfg: cfg, logger: logger}
}

func (b *RedisBus) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st.connected() {
		return nil
	}
	b.st.set(StateConnecting)

	client := redis.NewClient(&redis.Options{
		Addr:     b.cfg.Addr,
		Password: b.cfg.Password,
		DB:       b.cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		b.st.set(StateDisconnected)
		return fmt.Errorf("redis connect: %w", err)
	}

	b.client = client
	b.st.set(StateConnected)
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.st.connected() {
		return nil, ErrNotConnected
	}

	pubsub := b.client.Subscribe(ctx, topic)
	// Wait for the SUBSCRIBE ack so no message published after this call can
	// be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{pubsub: pubsub}
	b.subs = append(b.subs, sub)

	go func() {
		// A single goroutine drains the channel, so handler invocations keep
		// the publish order of the topic.
		for msg := range pubsub.Channel() {
			deliver(context.Background(), "redis", topic, []byte(msg.Payload), handler)
		}
	}()

	return sub, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	client := b.client
	connected := b.st.connected()
	b.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if err := client.Publish(ctx, topic, wrapPayload(ctx, payload)).Err(); err != nil {
		b.reportError(fmt.Errorf("redis publish %s: %w", topic, err))
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = nil

	var err error
	if b.client != nil {
		err = b.client.Close()
		b.client = nil
	}
	b.st.set(StateDisconnected)
	return err
}

func (b *RedisBus) State() State { return b.st.get() }

func (b *RedisBus) reportError(err error) {
	if b.logger != nil {
		b.logger.Error("redis bus error", "err", err)
	}
	if b.cfg.OnError != nil {
		b.cfg.OnError(err)
	}
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		// Closing the PubSub also closes its message channel, ending the
		// delivery goroutine.
		_ = s.pubsub.Close()
	})
}

// RedisReadyCheck pings the configured Redis for /readyz.
func RedisReadyCheck(cfg RedisConfig) func(context.Context) error {
	return func(ctx context.Context) error {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		defer func() { _ = client.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}
}
