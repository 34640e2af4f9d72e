package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/salonpanel/salonpanel/internal/model"
)

func customerEvent(first, last string) model.Event {
	return model.Event{
		Type:      model.EventNewCustomer,
		Customer:  &model.Customer{FirstName: first, LastName: last, Email: first + "@x.com"},
		Timestamp: time.Now().UTC(),
	}
}

func TestRecord_NewCustomerMessage(t *testing.T) {
	f := New(0)
	activity := f.Record(model.Event{
		Type:     model.EventNewCustomer,
		Customer: &model.Customer{ID: 42, FirstName: "Ali", LastName: "Veli", Email: "ali@x.com"},
	})
	if activity.Message != "Ali Veli sisteme kayıt oldu" {
		t.Fatalf("unexpected message %q", activity.Message)
	}
	if activity.Details.Email != "ali@x.com" {
		t.Fatalf("details should carry the email, got %q", activity.Details.Email)
	}
	if activity.ID == "" {
		t.Fatal("activity needs a session-unique id")
	}
}

func TestRecord_NewCustomerBlankSafe(t *testing.T) {
	f := New(0)
	activity := f.Record(model.Event{Type: model.EventNewCustomer})
	if activity.Message != "  sisteme kayıt oldu" {
		t.Fatalf("blank names should interpolate empty, got %q", activity.Message)
	}
}

func TestRecord_NewAppointmentDetails(t *testing.T) {
	f := New(0)
	appt := &model.Appointment{
		CustomerName:    "Ali Veli",
		Services:        []string{"Saç Kesimi", "Sakal Tıraşı"},
		TotalPrice:      230,
		AppointmentDate: "2026-09-01",
	}
	activity := f.Record(model.Event{Type: model.EventNewAppointment, Appointment: appt})
	if activity.Message != "Ali Veli yeni randevu oluşturdu" {
		t.Fatalf("unexpected message %q", activity.Message)
	}
	d := activity.Details
	if len(d.Services) != 2 || d.TotalPrice != 230 || d.AppointmentDate != "2026-09-01" {
		t.Fatalf("unexpected details %+v", d)
	}
}

func TestRecord_NewAppointmentFallbackLabel(t *testing.T) {
	f := New(0)
	activity := f.Record(model.Event{Type: model.EventNewAppointment})
	if activity.Message != "Müşteri yeni randevu oluşturdu" {
		t.Fatalf("unexpected message %q", activity.Message)
	}
}

func TestRecord_StatusChanged(t *testing.T) {
	f := New(0)
	prev := &model.Appointment{ID: 7, CustomerName: "Ali Veli", Status: model.StatusConfirmed, TotalPrice: 230}
	activity := f.Record(model.Event{
		Type:           model.EventStatusChanged,
		Appointment:    prev,
		PreviousStatus: model.StatusConfirmed,
		NewStatus:      model.StatusCompleted,
	})
	if activity.Message != "Ali Veli randevusu tamamlandı olarak işaretlendi" {
		t.Fatalf("unexpected message %q", activity.Message)
	}
	d := activity.Details
	if d.Appointment == nil || d.Appointment.Status != model.StatusConfirmed {
		t.Fatal("details must include the prior snapshot")
	}
	if d.NewStatus != model.StatusCompleted || d.TotalPrice != 230 {
		t.Fatalf("unexpected details %+v", d)
	}
}

func TestFeed_BoundedMostRecentFirst(t *testing.T) {
	f := New(10)
	for i := 0; i < 25; i++ {
		f.Record(customerEvent(fmt.Sprintf("Müşteri%d", i), "Test"))
	}

	activities := f.Activities()
	if len(activities) != 10 {
		t.Fatalf("feed must hold at most 10 entries, got %d", len(activities))
	}
	// Most recent first: entry 0 is customer 24, entry 9 is customer 15.
	for i, activity := range activities {
		want := fmt.Sprintf("Müşteri%d Test sisteme kayıt oldu", 24-i)
		if activity.Message != want {
			t.Fatalf("entry %d: expected %q, got %q", i, want, activity.Message)
		}
	}
}

func TestFeed_SnapshotIsIsolated(t *testing.T) {
	f := New(10)
	f.Record(customerEvent("Ali", "Veli"))

	snapshot := f.Activities()
	snapshot[0].Message = "mutated"
	if f.Activities()[0].Message == "mutated" {
		t.Fatal("snapshot mutation must not leak into the feed")
	}
}
