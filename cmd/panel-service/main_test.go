package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitDisabledByZeroLimit(t *testing.T) {
	for _, driver := range []string{"memory", "kafka", "redis"} {
		mw, cleanup := newRateLimitMiddleware(driver, 0, slog.New(slog.DiscardHandler))
		cleanup()
		if mw != nil {
			t.Fatalf("driver %s: limit 0 must disable rate limiting", driver)
		}
	}
}

func TestRateLimitInMemoryEnforcesLimit(t *testing.T) {
	mw, cleanup := newRateLimitMiddleware("memory", 2, slog.New(slog.DiscardHandler))
	defer cleanup()
	if mw == nil {
		t.Fatal("positive limit must install a limiter")
	}

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	status := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/panel/activities", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := status(); got != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", got)
	}
	if got := status(); got != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", got)
	}
	if got := status(); got != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", got)
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, ,b,,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected result %v", got)
	}
	if got := parseList(""); len(got) != 0 {
		t.Fatalf("empty input must yield no entries, got %v", got)
	}
}
