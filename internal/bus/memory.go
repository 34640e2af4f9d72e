package bus

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and by transport-less sessions
// (BUS_DRIVER=memory). It preserves publish order per subscriber and drops
// messages once a subscriber's buffer overflows, like a real fire-and-forget
// transport under backpressure.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string][]*memorySubscription
	st     state
}

const memoryBufferSize = 256

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string][]*memorySubscription)}
}

func (b *MemoryBus) Connect(context.Context) error {
	b.st.set(StateConnected)
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.st.connected() {
		return nil, ErrNotConnected
	}

	sub := &memorySubscription{
		bus:   b,
		topic: topic,
		ch:    make(chan []byte, memoryBufferSize),
	}
	b.topics[topic] = append(b.topics[topic], sub)

	go func() {
		for payload := range sub.ch {
			deliver(context.Background(), "memory", topic, payload, handler)
		}
	}()

	return sub, nil
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.st.connected() {
		return ErrNotConnected
	}

	// Fan out to every subscriber; a full buffer drops the message for that
	// subscriber only and never starves the rest.
	wrapped := wrapPayload(ctx, payload)
	dropped := 0
	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- wrapped:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("memory bus: dropped message for %d subscriber(s) on %s", dropped, topic)
	}
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.topics {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.topics = make(map[string][]*memorySubscription)
	b.st.set(StateDisconnected)
	return nil
}

func (b *MemoryBus) State() State { return b.st.get() }

type memorySubscription struct {
	bus   *MemoryBus
	topic string
	ch    chan []byte
	once  sync.Once
}

func (s *memorySubscription) Unsubscribe() {
	s.bus.mu.Lock()
	subs := s.bus.topics[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.bus.topics[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.bus.mu.Unlock()
	s.close()
}

func (s *memorySubscription) close() {
	s.once.Do(func() { close(s.ch) })
}
