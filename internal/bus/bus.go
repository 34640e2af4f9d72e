// Package bus is the notification transport behind the panel: a thin
// publish/subscribe abstraction over Redis Pub/Sub (default) or Kafka.
// Delivery is fire-and-forget and ordered per topic; nothing is persisted.
//
// Topic names come from model.Topic only. Neither implementation enforces
// authorization on subscribe or publish; isolating owners beyond topic naming
// is a transport-deployment concern (Redis ACL channel patterns or Kafka ACLs).
package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrNotConnected = errors.New("bus not connected")

// Handler receives one message payload per invocation, asynchronously,
// in publish order for the subscribed topic.
type Handler func(ctx context.Context, payload []byte)

type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}

type Bus interface {
	// Connect establishes the transport. Idempotent while already connected.
	Connect(ctx context.Context) error
	// Subscribe registers a handler for every message on topic for the life
	// of the subscription. Requires a connected bus.
	Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error)
	// Publish sends one message on topic. Requires a connected bus; the send
	// is not acknowledged end-to-end.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Close releases the transport and all subscriptions. Idempotent.
	Close() error
}

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// state is the shared Disconnected/Connecting/Connected tracker used by the
// concrete buses.
type state struct {
	v atomic.Int32
}

func (s *state) get() State      { return State(s.v.Load()) }
func (s *state) set(next State)  { s.v.Store(int32(next)) }
func (s *state) connected() bool { return s.get() == StateConnected }
