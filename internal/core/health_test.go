package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skycast/internal/config"
)

// --- Mock Health Probe ---

// mockHealthProbe implements HealthProbe for testing.
type mockHealthProbe struct {
	name     string
	checkErr error
	// delay simulates slow subsystems; Check blocks for this duration.
	delay time.Duration
}

func (m *mockHealthProbe) Name() string { return m.name }

func (m *mockHealthProbe) Check(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.checkErr
}

// --- Helper ---

func newTestServerForHealth(probes []HealthProbe) *Server {
	cfg := &config.Config{Environment: "local"}
	srv, _ := NewServer(cfg, slog.Default())
	srv.HealthProbes = probes
	return srv
}

// --- Tests ---

func TestHandleHealth_AllHealthy(t *testing.T) {
	probes := []HealthProbe{
		&mockHealthProbe{name: "models"},
		&mockHealthProbe{name: "predictor"},
	}

	srv := newTestServerForHealth(probes)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
	for _, name := range []string{"models", "predictor"} {
		comp, ok := resp.Components[name]
		if !ok {
			t.Errorf("expected component %q in response", name)
			continue
		}
		if comp.Status != "healthy" {
			t.Errorf("component %q: expected 'healthy', got %q", name, comp.Status)
		}
	}
}

func TestHandleHealth_NoProbes(t *testing.T) {
	srv := newTestServerForHealth(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleHealth_OneUnhealthy(t *testing.T) {
	probes := []HealthProbe{
		&mockHealthProbe{name: "models"},
		&mockHealthProbe{name: "predictor", checkErr: errors.New("connection refused")},
	}

	srv := newTestServerForHealth(probes)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %q", resp.Status)
	}
	if resp.Components["models"].Status != "healthy" {
		t.Errorf("models: expected 'healthy', got %q", resp.Components["models"].Status)
	}
	pred := resp.Components["predictor"]
	if pred.Status != "unhealthy" {
		t.Errorf("predictor: expected 'unhealthy', got %q", pred.Status)
	}
	if pred.Message != "connection refused" {
		t.Errorf("predictor: expected message 'connection refused', got %q", pred.Message)
	}
}

func TestHandleHealth_SlowProbeTimesOut(t *testing.T) {
	probes := []HealthProbe{
		&mockHealthProbe{name: "models"},
		&mockHealthProbe{name: "predictor", delay: healthCheckTimeout + time.Second},
	}

	srv := newTestServerForHealth(probes)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Components["models"].Status != "healthy" {
		t.Errorf("models: expected 'healthy', got %q", resp.Components["models"].Status)
	}
	if resp.Components["predictor"].Status != "unhealthy" {
		t.Errorf("predictor: expected 'unhealthy', got %q", resp.Components["predictor"].Status)
	}
}

type panickyProbe struct{}

func (panickyProbe) Name() string                    { return "flaky" }
func (panickyProbe) Check(ctx context.Context) error { panic("boom") }

func TestHandleHealth_ProbePanicIsContained(t *testing.T) {
	srv := newTestServerForHealth([]HealthProbe{panickyProbe{}})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Components["flaky"].Status != "unhealthy" {
		t.Errorf("flaky: expected 'unhealthy', got %q", resp.Components["flaky"].Status)
	}
}
