package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/salonpanel/salonpanel/internal/booking"
	"github.com/salonpanel/salonpanel/internal/bus"
	"github.com/salonpanel/salonpanel/internal/dataservice"
	"github.com/salonpanel/salonpanel/internal/model"
	"github.com/salonpanel/salonpanel/internal/notify"
	"github.com/salonpanel/salonpanel/internal/session"
)

// fakeDataService backs both the session refreshes and the mutation flows.
type fakeDataService struct {
	mu           sync.Mutex
	customers    []model.Customer
	appointments []model.Appointment
	patchStatus  int
	patchBody    string
}

func (f *fakeDataService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodPost {
			var req dataservice.NewCustomer
			_ = json.NewDecoder(r.Body).Decode(&req)
			created := model.Customer{ID: 42, FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone, Email: req.Email}
			f.customers = append(f.customers, created)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(created)
			return
		}
		_ = json.NewEncoder(w).Encode(f.customers)
	})
	mux.HandleFunc("/appointments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req dataservice.NewAppointment
		_ = json.NewDecoder(r.Body).Decode(&req)
		created := model.Appointment{
			ID: int64(len(f.appointments) + 1), CustomerID: req.CustomerID,
			BusinessOwnerID: req.BusinessOwnerID, Services: req.Services,
			TotalPrice: req.TotalPrice, Status: req.Status,
			AppointmentDate: req.AppointmentDate, AppointmentTime: req.AppointmentTime,
		}
		f.appointments = append(f.appointments, created)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(created)
	})
	mux.HandleFunc("/appointments/business/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		appts := f.appointments
		if i := strings.Index(r.URL.Path, "/status/"); i >= 0 {
			status := model.Status(r.URL.Path[i+len("/status/"):])
			var filtered []model.Appointment
			for _, a := range appts {
				if a.Status == status {
					filtered = append(filtered, a)
				}
			}
			appts = filtered
		}
		_ = json.NewEncoder(w).Encode(appts)
	})
	mux.HandleFunc("/appointments/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		status := f.patchStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if f.patchBody != "" {
			_, _ = w.Write([]byte(f.patchBody))
		}
	})
	return mux
}

func newPanelServer(t *testing.T, fake *fakeDataService) (*httptest.Server, *session.Session) {
	t.Helper()
	dataSrv := httptest.NewServer(fake.handler())
	t.Cleanup(dataSrv.Close)

	logger := slog.New(slog.DiscardHandler)
	client := dataservice.NewClient(dataservice.Config{BaseURL: dataSrv.URL})

	b := bus.NewMemoryBus()
	sess := session.New(session.Config{BusinessOwnerID: 1}, b, client, logger)
	t.Cleanup(sess.Close)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("session start: %v", err)
	}

	svc := booking.NewService(client, notify.NewPublisher(b, logger, 0), logger)
	mux := http.NewServeMux()
	NewPanelHandler(sess, svc, logger).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, sess
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestPanel_AppointmentsSnapshotAndFilter(t *testing.T) {
	fake := &fakeDataService{}
	fake.appointments = []model.Appointment{
		{ID: 1, Status: model.StatusPending},
		{ID: 2, Status: model.StatusConfirmed},
	}
	srv, _ := newPanelServer(t, fake)

	var appts []model.Appointment
	if code := getJSON(t, srv.URL+"/api/v1/panel/appointments", &appts); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}

	if code := getJSON(t, srv.URL+"/api/v1/panel/appointments?status=pending", &appts); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(appts) != 1 || appts[0].ID != 1 {
		t.Fatalf("expected only the pending appointment, got %+v", appts)
	}
}

func TestPanel_StatusTransition(t *testing.T) {
	fake := &fakeDataService{}
	fake.appointments = []model.Appointment{{ID: 7, BusinessOwnerID: 1, Status: model.StatusConfirmed}}
	srv, _ := newPanelServer(t, fake)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/panel/appointments/7/status?status=COMPLETED", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var updated model.Appointment
	_ = json.NewDecoder(resp.Body).Decode(&updated)
	if updated.Status != model.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", updated.Status)
	}
}

func TestPanel_StatusTransitionRejected(t *testing.T) {
	fake := &fakeDataService{}
	fake.appointments = []model.Appointment{{ID: 7, BusinessOwnerID: 1, Status: model.StatusCompleted}}
	srv, _ := newPanelServer(t, fake)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/panel/appointments/7/status?status=CONFIRMED", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("terminal status must yield 409, got %d", resp.StatusCode)
	}
}

func TestPanel_StatusTransitionUnknownAppointment(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/panel/appointments/999/status?status=CONFIRMED", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown id must yield 404, got %d", resp.StatusCode)
	}
}

func TestPanel_StatusTransitionDataServiceDown(t *testing.T) {
	fake := &fakeDataService{patchStatus: http.StatusInternalServerError, patchBody: `{"message":"durum güncellenemedi"}`}
	fake.appointments = []model.Appointment{{ID: 7, BusinessOwnerID: 1, Status: model.StatusPending}}
	srv, _ := newPanelServer(t, fake)

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/panel/appointments/7/status?status=CONFIRMED", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("data-service failure must yield 502, got %d", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["message"] != "durum güncellenemedi" {
		t.Fatalf("upstream message must pass through, got %q", body["message"])
	}
}

func TestPanel_RefreshIsIdempotent(t *testing.T) {
	fake := &fakeDataService{}
	fake.appointments = []model.Appointment{{ID: 5, Status: model.StatusPending}}
	srv, sess := newPanelServer(t, fake)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/panel/refresh", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("refresh %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
	if len(sess.Appointments()) != 1 {
		t.Fatal("repeated refresh changed the collection")
	}
}

func TestPanel_ServicesCatalog(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	var resp struct {
		Services []struct {
			Name  string `json:"name"`
			Price int    `json:"price"`
		} `json:"services"`
		TimeSlots []string `json:"timeSlots"`
	}
	if code := getJSON(t, srv.URL+"/api/v1/panel/services", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(resp.Services) == 0 {
		t.Fatal("catalog must not be empty")
	}
	if len(resp.TimeSlots) != 18 || resp.TimeSlots[0] != "09:00" || resp.TimeSlots[17] != "17:30" {
		t.Fatalf("unexpected slot grid: %v", resp.TimeSlots)
	}
}

func TestPanel_RegisterCustomer(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/customers",
		`{"firstName":"Ali","lastName":"Veli","phone":"5551234567","email":"ali@x.com"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.Customer
	_ = json.NewDecoder(resp.Body).Decode(&created)
	if created.ID != 42 {
		t.Fatalf("expected id 42, got %d", created.ID)
	}
}

func TestPanel_RegisterCustomerValidation(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/customers", `{"firstName":"Ali"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPanel_BookAppointment(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments",
		`{"customerId":42,"businessOwnerId":1,"appointmentDate":"2026-09-01","appointmentTime":"10:00","services":["Saç Kesimi","Sakal Tıraşı"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.Appointment
	_ = json.NewDecoder(resp.Body).Decode(&created)
	if created.TotalPrice != 230 || created.Status != model.StatusPending {
		t.Fatalf("unexpected appointment %+v", created)
	}
}

func TestPanel_ActivitiesEmptyByDefault(t *testing.T) {
	srv, _ := newPanelServer(t, &fakeDataService{})

	var activities []json.RawMessage
	if code := getJSON(t, srv.URL+"/api/v1/panel/activities", &activities); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(activities) != 0 {
		t.Fatalf("expected empty feed, got %d entries", len(activities))
	}
}
