// Package booking implements the customer- and owner-side actions: register a
// customer, book an appointment, change an appointment's status. Each action
// validates, commits through the data service, and then publishes a
// notification best-effort. The two steps are deliberately not transactional:
// a lost notification costs a dashboard a refresh, a rolled-back commit would
// cost the customer their booking.
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salonpanel/salonpanel/internal/dataservice"
	"github.com/salonpanel/salonpanel/internal/model"
	"github.com/salonpanel/salonpanel/internal/notify"
	"github.com/salonpanel/salonpanel/internal/pricing"
)

// ValidationError rejects an action before any data-service call; nothing is
// published and nothing changes.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Service struct {
	data      *dataservice.Client
	publisher *notify.Publisher
	logger    *slog.Logger
}

func NewService(data *dataservice.Client, publisher *notify.Publisher, logger *slog.Logger) *Service {
	return &Service{data: data, publisher: publisher, logger: logger}
}

type Registration struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	BirthDate         string   `json:"birthDate"`
	PreferredServices []string `json:"preferredServices"`
	Notes             string   `json:"notes"`
	BusinessOwnerID   int64    `json:"businessOwnerId"`
}

func (s *Service) RegisterCustomer(ctx context.Context, reg Registration) (*model.Customer, error) {
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Email = strings.TrimSpace(reg.Email)

	switch {
	case reg.FirstName == "":
		return nil, &ValidationError{Field: "firstName", Message: "ad gerekli"}
	case reg.LastName == "":
		return nil, &ValidationError{Field: "lastName", Message: "soyad gerekli"}
	case reg.Phone == "":
		return nil, &ValidationError{Field: "phone", Message: "telefon gerekli"}
	case reg.Email == "" || !strings.Contains(reg.Email, "@"):
		return nil, &ValidationError{Field: "email", Message: "geçerli bir e-posta gerekli"}
	}

	created, err := s.data.CreateCustomer(ctx, dataservice.NewCustomer{
		FirstName:         reg.FirstName,
		LastName:          reg.LastName,
		Phone:             reg.Phone,
		Email:             reg.Email,
		Password:          reg.Password,
		BirthDate:         reg.BirthDate,
		PreferredServices: reg.PreferredServices,
		Notes:             reg.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ownerOrDefault(reg.BusinessOwnerID), notify.NewCustomerEvent(created))
	return created, nil
}

type BookingRequest struct {
	CustomerID      int64    `json:"customerId"`
	BusinessOwnerID int64    `json:"businessOwnerId"`
	AppointmentDate string   `json:"appointmentDate"`
	AppointmentTime string   `json:"appointmentTime"`
	Services        []string `json:"services"`
	Notes           string   `json:"notes"`
}

func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if len(req.Services) == 0 {
		return nil, &ValidationError{Field: "services", Message: "en az bir hizmet seçin"}
	}
	if strings.TrimSpace(req.AppointmentDate) == "" || strings.TrimSpace(req.AppointmentTime) == "" {
		return nil, &ValidationError{Field: "appointmentDate", Message: "tarih ve saat seçin"}
	}
	if _, err := time.Parse("2006-01-02", req.AppointmentDate); err != nil {
		return nil, &ValidationError{Field: "appointmentDate", Message: "geçersiz tarih"}
	}
	if !pricing.ValidSlot(req.AppointmentTime) {
		return nil, &ValidationError{Field: "appointmentTime", Message: "geçersiz saat"}
	}

	owner := ownerOrDefault(req.BusinessOwnerID)

	// The total is derived here and sent along, but the data service's answer
	// is what the panel trusts.
	created, err := s.data.CreateAppointment(ctx, dataservice.NewAppointment{
		CustomerID:      req.CustomerID,
		BusinessOwnerID: owner,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Services:        req.Services,
		TotalPrice:      pricing.Total(req.Services),
		Notes:           req.Notes,
		Status:          model.StatusPending,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, owner, notify.NewAppointmentEvent(created))
	return created, nil
}

// ChangeStatus validates the transition against the current snapshot, asks
// the data service to apply it, and only then publishes the change event with
// the prior snapshot attached. On any error the caller's local state must
// stay as it was.
func (s *Service) ChangeStatus(ctx context.Context, current model.Appointment, newStatus model.Status) (*model.Appointment, error) {
	if err := model.ValidateTransition(current.Status, newStatus); err != nil {
		return nil, err
	}

	if err := s.data.UpdateAppointmentStatus(ctx, current.ID, newStatus); err != nil {
		return nil, err
	}

	prev := current
	s.publish(ctx, ownerOrDefault(current.BusinessOwnerID), notify.StatusChangedEvent(&prev, newStatus))

	updated := current
	updated.Status = newStatus
	return &updated, nil
}

// publish is best-effort: a failure is logged and swallowed, never propagated
// to the caller whose mutation already committed.
func (s *Service) publish(ctx context.Context, businessOwnerID int64, event model.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, businessOwnerID, event); err != nil {
		s.logger.Warn("notification publish failed", "type", string(event.Type), "err", err)
	}
}

// ownerOrDefault falls back to business owner 1, the single-salon default the
// frontend has always assumed.
func ownerOrDefault(id int64) int64 {
	if id <= 0 {
		return 1
	}
	return id
}
