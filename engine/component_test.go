package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/agentbridge/component"
)

func TestComponent_HealthHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c, err := NewClient(serverConfig(t, srv), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp := NewComponent(c)

	h := comp.Health(context.Background())
	if h.Status != component.StatusHealthy {
		t.Errorf("status = %q, want %q", h.Status, component.StatusHealthy)
	}
	if h.Name != "engine" {
		t.Errorf("name = %q, want engine", h.Name)
	}
}

func TestComponent_HealthUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer srv.Close()

	c, err := NewClient(serverConfig(t, srv), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp := NewComponent(c)

	h := comp.Health(context.Background())
	if h.Status != component.StatusUnhealthy {
		t.Errorf("status = %q, want %q", h.Status, component.StatusUnhealthy)
	}
	if h.Message == "" {
		t.Error("expected failure message")
	}
}

func TestComponent_StartToleratesUnreachableEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cfg := serverConfig(t, srv)
	srv.Close()

	c, err := NewClient(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp := NewComponent(c)

	if err := comp.Start(context.Background()); err != nil {
		t.Errorf("Start() = %v, want nil even when the engine is down", err)
	}
}

func TestComponent_StopClosesClient(t *testing.T) {
	c, err := NewClient(Config{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp := NewComponent(c)

	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	c, err := NewClient(Config{Host: "engine.internal", Port: 9000}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	comp := NewComponent(c)

	d := comp.Describe()
	if d.Name != "Engine Client" {
		t.Errorf("description name = %q, want Engine Client", d.Name)
	}
	if d.Type != "client" {
		t.Errorf("description type = %q, want client", d.Type)
	}
	if d.Port != 9000 {
		t.Errorf("description port = %d, want 9000", d.Port)
	}
}
