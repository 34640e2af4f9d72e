package model

import (
	"fmt"
	"time"
)

type Appointment struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customerId"`
	BusinessOwnerID int64     `json:"businessOwnerId"`
	CustomerName    string    `json:"customerName,omitempty"`
	CustomerPhone   string    `json:"customerPhone,omitempty"`
	AppointmentDate string    `json:"appointmentDate"`
	AppointmentTime string    `json:"appointmentTime"`
	Services        []string  `json:"services"`
	TotalPrice      int       `json:"totalPrice"`
	Notes           string    `json:"notes,omitempty"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Customer struct {
	ID                int64     `json:"id"`
	FirstName         string    `json:"firstName"`
	LastName          string    `json:"lastName"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	BirthDate         string    `json:"birthDate,omitempty"`
	PreferredServices []string  `json:"preferredServices,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	RegistrationDate  time.Time `json:"registrationDate"`
}

func (c Customer) FullName() string {
	switch {
	case c.FirstName == "" && c.LastName == "":
		return ""
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Topic derives the notification channel name for a business owner.
// Every publisher and subscriber for that owner uses the same name, so
// topic isolation is the only fan-out boundary.
func Topic(businessOwnerID int64) string {
	return fmt.Sprintf("notifications/%d", businessOwnerID)
}
