package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaBus is the alternative transport for deployments that already run the
// platform's Kafka. Each subscription gets its own consumer group so every
// panel session sees every message, mirroring Pub/Sub fan-out. Single-partition
// notification topics keep delivery in publish order.
type KafkaBus struct {
	cfg     KafkaConfig
	logger  *slog.Logger
	brokers []string

	mu     sync.Mutex
	writer *kafka.Writer
	subs   []*kafkaSubscription
	st     state
}

type KafkaConfig struct {
	// Brokers is a comma-separated broker list.
	Brokers string
	// GroupPrefix namespaces the per-subscription consumer groups.
	GroupPrefix string
	OnError     func(error)
}

func NewKafkaBus(cfg KafkaConfig, logger *slog.Logger) *KafkaBus {
	if cfg.GroupPrefix == "" {
		cfg.GroupPrefix = "panel"
	}
	return &KafkaBus{cfg: cfg, logger: logger, brokers: splitBrokers(cfg.Brokers)}
}

func (b *KafkaBus) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st.connected() {
		return nil
	}
	if len(b.brokers) == 0 {
		return errors.New("kafka connect: no brokers configured")
	}
	b.st.set(StateConnecting)

	dialer := kafka.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		b.st.set(StateDisconnected)
		return fmt.Errorf("kafka connect: %w", err)
	}
	_ = conn.Close()

	b.writer = &kafka.Writer{
		Addr:                   kafka.TCP(b.brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	b.st.set(StateConnected)
	return nil
}

func (b *KafkaBus) Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.st.connected() {
		return nil, ErrNotConnected
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.brokers,
		GroupID:  b.cfg.GroupPrefix + "-" + uuid.NewString(),
		Topic:    kafkaTopic(topic),
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &kafkaSubscription{reader: reader, cancel: cancel}
	b.subs = append(b.subs, sub)

	go func() {
		defer reader.Close()
		for {
			msg, err := reader.ReadMessage(readCtx)
			if err != nil {
				if readCtx.Err() != nil {
					return
				}
				b.reportError(fmt.Errorf("kafka read %s: %w", topic, err))
				time.Sleep(1 * time.Second)
				continue
			}
			deliver(readCtx, "kafka", topic, msg.Value, handler)
		}
	}()

	return sub, nil
}

func (b *KafkaBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	writer := b.writer
	connected := b.st.connected()
	b.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	err := writer.WriteMessages(ctx, kafka.Message{
		Topic: kafkaTopic(topic),
		Key:   []byte(topic),
		Value: wrapPayload(ctx, payload),
	})
	if err != nil {
		b.reportError(fmt.Errorf("kafka publish %s: %w", topic, err))
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.subs = nil

	var err error
	if b.writer != nil {
		err = b.writer.Close()
		b.writer = nil
	}
	b.st.set(StateDisconnected)
	return err
}

func (b *KafkaBus) State() State { return b.st.get() }

func (b *KafkaBus) reportError(err error) {
	if b.logger != nil {
		b.logger.Error("kafka bus error", "err", err)
	}
	if b.cfg.OnError != nil {
		b.cfg.OnError(err)
	}
}

type kafkaSubscription struct {
	reader *kafka.Reader
	cancel context.CancelFunc
	once   sync.Once
}

func (s *kafkaSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// kafkaTopic maps the slash-separated topic convention to a legal Kafka name.
func kafkaTopic(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// KafkaReadyCheck dials the first broker for /readyz.
func KafkaReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		list := splitBrokers(brokers)
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", list[0])
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
}
