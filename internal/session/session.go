// Package session holds the state of one connected dashboard: the activity
// feed, the reconciled appointment and customer collections, and the topic
// subscription feeding both. Every piece of state is owned by the session and
// dies with it; nothing is shared across sessions except the topic itself.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/salonpanel/salonpanel/internal/bus"
	"github.com/salonpanel/salonpanel/internal/dataservice"
	"github.com/salonpanel/salonpanel/internal/feed"
	"github.com/salonpanel/salonpanel/internal/model"
)

// ReconnectPolicy is the explicit answer to "what happens after a transient
// transport failure": bounded exponential backoff, then give up loudly. The
// session stays usable for manual refresh either way.
type ReconnectPolicy struct {
	Enabled     bool
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:     true,
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

type Config struct {
	BusinessOwnerID int64
	FeedCapacity    int
	// QueueSize bounds the in-flight events between the transport handler and
	// the session loop. The handler blocks when full, preserving order.
	QueueSize int
	Reconnect ReconnectPolicy
	// OnError receives transport errors (connect failures, reconnect
	// exhaustion). Data-service errors are returned from the refresh calls
	// instead.
	OnError func(error)
	// RefreshTimeout bounds each reconciliation fetch.
	RefreshTimeout time.Duration
}

type Session struct {
	cfg    Config
	bus    bus.Bus
	data   *dataservice.Client
	logger *slog.Logger
	feed   *feed.Feed

	mu           sync.RWMutex
	appointments []model.Appointment
	customers    []model.Customer
	filter       model.Status

	events       chan model.Event
	done         chan struct{}
	closeOnce    sync.Once
	loopStarted  atomic.Bool
	loopDone     chan struct{}
	sub          bus.Subscription
	reconnecting atomic.Bool
}

func New(cfg Config, b bus.Bus, data *dataservice.Client, logger *slog.Logger) *Session {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 10 * time.Second
	}
	return &Session{
		cfg:      cfg,
		bus:      b,
		data:     data,
		logger:   logger,
		feed:     feed.New(cfg.FeedCapacity),
		events:   make(chan model.Event, cfg.QueueSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// Start loads both collections, starts the event loop, and connects the
// transport. A transport failure is reported through OnError and does not
// fail Start: the data-service path and the notification path are decoupled,
// so manual refresh keeps working without a connection.
func (s *Session) Start(ctx context.Context) error {
	if err := s.RefreshAppointments(ctx); err != nil {
		s.logger.Error("initial appointment load failed", "err", err)
	}
	if err := s.RefreshCustomers(ctx); err != nil {
		s.logger.Error("initial customer load failed", "err", err)
	}

	if s.loopStarted.CompareAndSwap(false, true) {
		go s.loop()
	}

	if err := s.connect(ctx); err != nil {
		s.reportTransportError(err)
	}
	return nil
}

// Close releases the subscription and the transport connection. Guaranteed
// safe on every exit path; the session owns its bus.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		sub := s.sub
		s.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
		if err := s.bus.Close(); err != nil {
			s.logger.Warn("bus close failed", "err", err)
		}
		if s.loopStarted.Load() {
			<-s.loopDone
		}
	})
}

func (s *Session) connect(ctx context.Context) error {
	// Release the previous subscription first. Transport errors can fire while
	// the bus is still connected (a failed publish, a transient read error);
	// resubscribing without this would deliver every event once per live
	// subscription.
	s.mu.Lock()
	prev := s.sub
	s.sub = nil
	s.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}

	if err := s.bus.Connect(ctx); err != nil {
		return err
	}
	sub, err := s.bus.Subscribe(ctx, model.Topic(s.cfg.BusinessOwnerID), s.handleMessage)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	s.logger.Info("subscribed", "topic", model.Topic(s.cfg.BusinessOwnerID))
	return nil
}

// HandleTransportError is the hook for the bus's error callback. With
// reconnection enabled it retries with exponential backoff off the caller's
// goroutine; exhaustion is reported once through OnError.
func (s *Session) HandleTransportError(err error) {
	s.reportTransportError(err)
	if !s.cfg.Reconnect.Enabled {
		return
	}
	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.reconnecting.Store(false)
		s.reconnect()
	}()
}

func (s *Session) reconnect() {
	policy := s.cfg.Reconnect
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.connect(ctx)
		cancel()
		if err == nil {
			s.logger.Info("transport reconnected", "attempt", attempt)
			return
		}
		s.logger.Warn("reconnect attempt failed", "attempt", attempt, "err", err)

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	s.reportTransportError(fmt.Errorf("transport reconnect gave up after %d attempts", policy.MaxAttempts))
}

// handleMessage runs on the transport's delivery goroutine. It only decodes
// and forwards, so per-topic ordering carries through to the loop.
func (s *Session) handleMessage(_ context.Context, payload []byte) {
	var event model.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error("undecodable notification dropped", "err", err)
		return
	}
	select {
	case s.events <- event:
	case <-s.done:
	}
}

func (s *Session) loop() {
	defer close(s.loopDone)
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.apply(event)
		}
	}
}

// apply folds one delivered event into the session: derive an activity, then
// reconcile the affected collection against the data service. Reconciliation
// is a wholesale replacement, so a fetch racing a concurrent write self-heals
// on the next event.
func (s *Session) apply(event model.Event) {
	s.feed.Record(event)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
	defer cancel()

	switch event.Type {
	case model.EventNewAppointment, model.EventStatusChanged:
		if err := s.RefreshAppointments(ctx); err != nil {
			s.logger.Error("appointment reconciliation failed", "err", err)
		}
	case model.EventNewCustomer:
		if err := s.RefreshCustomers(ctx); err != nil {
			s.logger.Error("customer reconciliation failed", "err", err)
		}
	default:
		s.logger.Warn("unknown notification type ignored", "type", string(event.Type))
	}
}

// RefreshAppointments re-fetches the owner's appointments (honoring the
// current filter) and replaces the local collection. Idempotent; safe to call
// without a transport connection.
func (s *Session) RefreshAppointments(ctx context.Context) error {
	s.mu.RLock()
	filter := s.filter
	s.mu.RUnlock()

	appointments, err := s.data.ListAppointments(ctx, s.cfg.BusinessOwnerID, filter)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.appointments = appointments
	s.mu.Unlock()
	return nil
}

// RefreshCustomers re-fetches the customer collection and replaces it.
func (s *Session) RefreshCustomers(ctx context.Context) error {
	customers, err := s.data.ListCustomers(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.customers = customers
	s.mu.Unlock()
	return nil
}

// SetFilter narrows the appointment view to one status ("" or ALL for all)
// and re-fetches under the new filter.
func (s *Session) SetFilter(ctx context.Context, filter model.Status) error {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	return s.RefreshAppointments(ctx)
}

func (s *Session) Filter() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Session) Appointments() []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

// Appointment looks up one appointment from the reconciled collection.
func (s *Session) Appointment(id int64) (model.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, appt := range s.appointments {
		if appt.ID == id {
			return appt, true
		}
	}
	return model.Appointment{}, false
}

func (s *Session) Customers() []model.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, len(s.customers))
	copy(out, s.customers)
	return out
}

func (s *Session) Activities() []feed.Activity {
	return s.feed.Activities()
}

func (s *Session) reportTransportError(err error) {
	s.logger.Error("transport error", "err", err)
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
