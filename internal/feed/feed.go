// Package feed folds delivered notification events into the panel's activity
// log: a bounded, most-recent-first buffer owned by one dashboard session and
// discarded with it.
package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salonpanel/salonpanel/internal/model"
)

// DefaultCapacity matches the panel's "last 10 activities" view.
const DefaultCapacity = 10

type Activity struct {
	ID        string          `json:"id"`
	Type      model.EventType `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Details   Details         `json:"details"`
}

// Details is the denormalized snapshot of the triggering entity, copied onto
// the activity so the panel renders it without touching the collections.
type Details struct {
	Appointment     *model.Appointment `json:"appointment,omitempty"`
	Customer        *model.Customer    `json:"customer,omitempty"`
	Services        []string           `json:"services,omitempty"`
	TotalPrice      int                `json:"totalPrice,omitempty"`
	AppointmentDate string             `json:"appointmentDate,omitempty"`
	Email           string             `json:"email,omitempty"`
	PreviousStatus  model.Status       `json:"previousStatus,omitempty"`
	NewStatus       model.Status       `json:"newStatus,omitempty"`
}

// Feed is safe for concurrent use: the session loop records while HTTP
// handlers read snapshots.
type Feed struct {
	mu       sync.Mutex
	capacity int
	entries  []Activity
}

func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{capacity: capacity}
}

// Record derives an activity from the event and prepends it, evicting the
// oldest entry beyond capacity.
func (f *Feed) Record(event model.Event) Activity {
	activity := derive(event)

	f.mu.Lock()
	f.entries = append([]Activity{activity}, f.entries...)
	if len(f.entries) > f.capacity {
		f.entries = f.entries[:f.capacity]
	}
	f.mu.Unlock()

	return activity
}

// Activities returns a most-recent-first copy of the buffer.
func (f *Feed) Activities() []Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Activity, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func derive(event model.Event) Activity {
	activity := Activity{
		ID:        uuid.NewString(),
		Type:      event.Type,
		Timestamp: time.Now().UTC(),
	}

	switch event.Type {
	case model.EventNewAppointment:
		name := "Müşteri"
		if event.Appointment != nil && event.Appointment.CustomerName != "" {
			name = event.Appointment.CustomerName
		}
		activity.Message = fmt.Sprintf("%s yeni randevu oluşturdu", name)
		if appt := event.Appointment; appt != nil {
			activity.Details = Details{
				Appointment:     appt,
				Services:        appt.Services,
				TotalPrice:      appt.TotalPrice,
				AppointmentDate: appt.AppointmentDate,
			}
		}

	case model.EventNewCustomer:
		var first, last, email string
		if event.Customer != nil {
			first, last, email = event.Customer.FirstName, event.Customer.LastName, event.Customer.Email
		}
		activity.Message = fmt.Sprintf("%s %s sisteme kayıt oldu", first, last)
		activity.Details = Details{Customer: event.Customer, Email: email}

	case model.EventStatusChanged:
		name := "Müşteri"
		if event.Appointment != nil && event.Appointment.CustomerName != "" {
			name = event.Appointment.CustomerName
		}
		activity.Message = fmt.Sprintf("%s randevusu %s olarak işaretlendi", name, event.NewStatus.LabelLower())
		activity.Details = Details{
			Appointment:    event.Appointment,
			PreviousStatus: event.PreviousStatus,
			NewStatus:      event.NewStatus,
		}
		if event.Appointment != nil {
			activity.Details.TotalPrice = event.Appointment.TotalPrice
			activity.Details.Services = event.Appointment.Services
		}

	default:
		activity.Message = event.Message
	}

	return activity
}
