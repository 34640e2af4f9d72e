package model

import "time"

type EventType string

const (
	EventNewAppointment EventType = "NEW_APPOINTMENT"
	EventNewCustomer    EventType = "NEW_CUSTOMER"
	EventStatusChanged  EventType = "APPOINTMENT_STATUS_CHANGED"
)

// Event is the notification envelope published on a business owner's topic.
// It is immutable once constructed and carries the full entity snapshot, so a
// subscriber can render an activity entry without a follow-up read.
type Event struct {
	Type           EventType    `json:"type"`
	Message        string       `json:"message,omitempty"`
	Appointment    *Appointment `json:"appointment,omitempty"`
	Customer       *Customer    `json:"customer,omitempty"`
	PreviousStatus Status       `json:"previousStatus,omitempty"`
	NewStatus      Status       `json:"newStatus,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}
