// Package notify builds notification events and publishes them on the owning
// business's topic. Publishing is advisory: a failure here never rolls back
// the data-service mutation that triggered it, and callers only log it. The
// panel's manual refresh is the consistency backstop.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/salonpanel/salonpanel/internal/bus"
	"github.com/salonpanel/salonpanel/internal/model"
)

const DefaultPublishTimeout = 5 * time.Second

func NewAppointmentEvent(appt *model.Appointment) model.Event {
	name := appt.CustomerName
	if name == "" {
		name = "Müşteri"
	}
	return model.Event{
		Type:        model.EventNewAppointment,
		Message:     fmt.Sprintf("%s yeni randevu oluşturdu", name),
		Appointment: appt,
		Timestamp:   time.Now().UTC(),
	}
}

func NewCustomerEvent(cust *model.Customer) model.Event {
	return model.Event{
		Type:      model.EventNewCustomer,
		Message:   fmt.Sprintf("Yeni müşteri kaydı: %s", cust.FullName()),
		Customer:  cust,
		Timestamp: time.Now().UTC(),
	}
}

// StatusChangedEvent carries the appointment snapshot from before the change
// plus the new status, so subscribers can render the transition without a read.
func StatusChangedEvent(prev *model.Appointment, newStatus model.Status) model.Event {
	name := prev.CustomerName
	if name == "" {
		name = "Müşteri"
	}
	return model.Event{
		Type:           model.EventStatusChanged,
		Message:        fmt.Sprintf("%s randevusu %s olarak işaretlendi", name, newStatus.LabelLower()),
		Appointment:    prev,
		PreviousStatus: prev.Status,
		NewStatus:      newStatus,
		Timestamp:      time.Now().UTC(),
	}
}

type Publisher struct {
	bus     bus.Bus
	logger  *slog.Logger
	timeout time.Duration
}

func NewPublisher(b bus.Bus, logger *slog.Logger, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Publisher{bus: b, logger: logger, timeout: timeout}
}

// Publish sends the event to the owner's topic under a bounded deadline and
// returns an explicit result. The caller decides whether to surface it;
// nothing is retried here.
func (p *Publisher) Publish(ctx context.Context, businessOwnerID int64, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	topic := model.Topic(businessOwnerID)
	if err := p.bus.Publish(pubCtx, topic, payload); err != nil {
		return fmt.Errorf("publish %s on %s: %w", event.Type, topic, err)
	}
	p.logger.Info("notification published", "type", string(event.Type), "topic", topic)
	return nil
}

// OneShot connects a fresh bus, publishes a single event, and closes it, all
// under one deadline. Used where no long-lived connection exists (customer-side
// actions, the simulator).
func OneShot(ctx context.Context, b bus.Bus, logger *slog.Logger, businessOwnerID int64, event model.Event, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := b.Connect(opCtx); err != nil {
		return fmt.Errorf("one-shot connect: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("one-shot close failed", "err", err)
		}
	}()

	return NewPublisher(b, logger, timeout).Publish(opCtx, businessOwnerID, event)
}
