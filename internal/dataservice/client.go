// Package dataservice is the HTTP client for the appointment/customer data
// service, the source of truth for both collections. The panel only reads and
// requests mutations; it never owns persistent state.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salonpanel/salonpanel/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Error reports a failed data-service request. Callers surface the message to
// the user and never retry silently.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("data service %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("data service %s: %s", e.Op, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type NewCustomer struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	Password          string   `json:"password,omitempty"`
	BirthDate         string   `json:"birthDate,omitempty"`
	PreferredServices []string `json:"preferredServices,omitempty"`
	Notes             string   `json:"notes,omitempty"`
}

type NewAppointment struct {
	CustomerID      int64        `json:"customerId"`
	BusinessOwnerID int64        `json:"businessOwnerId"`
	AppointmentDate string       `json:"appointmentDate"`
	AppointmentTime string       `json:"appointmentTime"`
	Services        []string     `json:"services"`
	TotalPrice      int          `json:"totalPrice"`
	Notes           string       `json:"notes,omitempty"`
	Status          model.Status `json:"status"`
}

func (c *Client) CreateCustomer(ctx context.Context, req NewCustomer) (*model.Customer, error) {
	var created model.Customer
	if err := c.do(ctx, "create customer", http.MethodPost, "/customers", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var customers []model.Customer
	if err := c.do(ctx, "list customers", http.MethodGet, "/customers", nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req NewAppointment) (*model.Appointment, error) {
	var created model.Appointment
	if err := c.do(ctx, "create appointment", http.MethodPost, "/appointments", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListAppointments fetches the owner's appointments, optionally narrowed to a
// single status. An empty or "ALL" status returns everything.
func (c *Client) ListAppointments(ctx context.Context, businessOwnerID int64, status model.Status) ([]model.Appointment, error) {
	path := fmt.Sprintf("/appointments/business/%d", businessOwnerID)
	if status != "" && string(status) != "ALL" {
		path += "/status/" + url.PathEscape(string(status))
	}
	var appointments []model.Appointment
	if err := c.do(ctx, "list appointments", http.MethodGet, path, nil, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status model.Status) error {
	path := fmt.Sprintf("/appointments/%d/status?status=%s", appointmentID, url.QueryEscape(string(status)))
	return c.do(ctx, "update appointment status", http.MethodPatch, path, nil, nil)
}

// Ready probes the data service for the /readyz dependency check.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("data service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Message: "invalid response body: " + err.Error()}
	}
	return nil
}

// readErrorMessage pulls the {"message": ...} field the data service returns
// on failure, falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return "request failed"
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(raw))
}
