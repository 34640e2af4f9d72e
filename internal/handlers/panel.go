// Package handlers exposes the dashboard session and the customer-side action
// flows over HTTP. Handlers translate the error taxonomy onto status codes:
// validation failures are 400, rejected status transitions 409, data-service
// failures 502. Transport problems never surface here; the session logs them
// and the panel keeps serving its last reconciled snapshot.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/salonpanel/salonpanel/internal/booking"
	"github.com/salonpanel/salonpanel/internal/dataservice"
	"github.com/salonpanel/salonpanel/internal/model"
	"github.com/salonpanel/salonpanel/internal/pricing"
	"github.com/salonpanel/salonpanel/internal/session"
)

type PanelHandler struct {
	session *session.Session
	booking *booking.Service
	logger  *slog.Logger
}

func NewPanelHandler(sess *session.Session, svc *booking.Service, logger *slog.Logger) *PanelHandler {
	return &PanelHandler{session: sess, booking: svc, logger: logger}
}

// Register mounts all panel and customer routes on the mux.
func (h *PanelHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/panel/appointments", h.Appointments)
	mux.HandleFunc("/api/v1/panel/appointments/", h.AppointmentStatus)
	mux.HandleFunc("/api/v1/panel/customers", h.Customers)
	mux.HandleFunc("/api/v1/panel/activities", h.Activities)
	mux.HandleFunc("/api/v1/panel/refresh", h.Refresh)
	mux.HandleFunc("/api/v1/panel/services", h.Services)
	mux.HandleFunc("/api/v1/customers", h.RegisterCustomer)
	mux.HandleFunc("/api/v1/appointments", h.BookAppointment)
}

// Appointments returns the reconciled appointment snapshot. A status query
// narrows the session filter first, which re-fetches from the data service;
// without one the snapshot is served as-is, no remote call.
func (h *PanelHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.URL.Query().Has("status") {
		raw := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
		var status model.Status
		if raw != "" && raw != "ALL" {
			parsed, err := model.ParseStatus(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "geçersiz durum")
				return
			}
			status = parsed
		}
		if err := h.session.SetFilter(r.Context(), status); err != nil {
			h.writeTaxonomyError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.session.Appointments())
}

// AppointmentStatus handles PATCH /api/v1/panel/appointments/{id}/status.
func (h *PanelHandler) AppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/panel/appointments/")
	idStr, ok := strings.CutSuffix(rest, "/status")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "geçersiz randevu numarası")
		return
	}

	newStatus, err := model.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "geçersiz durum")
		return
	}

	current, ok := h.session.Appointment(id)
	if !ok {
		writeError(w, http.StatusNotFound, "randevu bulunamadı")
		return
	}

	updated, err := h.booking.ChangeStatus(r.Context(), current, newStatus)
	if err != nil {
		h.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PanelHandler) Customers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.session.Customers())
}

func (h *PanelHandler) Activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, h.session.Activities())
}

// Refresh re-fetches both collections on demand, the fallback when the
// transport is down. Idempotent.
func (h *PanelHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := h.session.RefreshAppointments(r.Context()); err != nil {
		h.writeTaxonomyError(w, err)
		return
	}
	if err := h.session.RefreshCustomers(r.Context()); err != nil {
		h.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

type servicesResponse struct {
	Services  []pricing.Service `json:"services"`
	TimeSlots []string          `json:"timeSlots"`
}

// Services returns the booking form data: the price catalog and the
// half-hourly slot grid.
func (h *PanelHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, servicesResponse{
		Services:  pricing.Services(),
		TimeSlots: pricing.TimeSlots(),
	})
}

func (h *PanelHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var reg booking.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	created, err := h.booking.RegisterCustomer(r.Context(), reg)
	if err != nil {
		h.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PanelHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req booking.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	created, err := h.booking.BookAppointment(r.Context(), req)
	if err != nil {
		h.writeTaxonomyError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// writeTaxonomyError maps domain errors onto status codes. Anything not in
// the taxonomy is a 500 with the detail kept in the log, not the response.
func (h *PanelHandler) writeTaxonomyError(w http.ResponseWriter, err error) {
	var vErr *booking.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Message)
		return
	}
	if errors.Is(err, model.ErrInvalidTransition) {
		writeError(w, http.StatusConflict, "geçersiz durum geçişi")
		return
	}
	var dsErr *dataservice.Error
	if errors.As(err, &dsErr) {
		writeError(w, http.StatusBadGateway, dsErr.Message)
		return
	}
	h.logger.Error("unclassified handler error", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
