package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/agentbridge/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	cfg := Config{Host: "127.0.0.1", Port: 0, Enabled: true}
	cfg.ApplyDefaults()
	return New(cfg, logger.NewDefault("server-test"))
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 15 {
		t.Errorf("expected read timeout 15, got %d", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("expected write timeout 0 for streaming, got %d", cfg.WriteTimeout)
	}
	if cfg.MaxBodySize != "10MB" {
		t.Errorf("expected max body size 10MB, got %s", cfg.MaxBodySize)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origin default, got %v", cfg.CORS.AllowedOrigins)
	}

	foundLastEventID := false
	for _, h := range cfg.CORS.AllowedHeaders {
		if h == "Last-Event-ID" {
			foundLastEventID = true
		}
	}
	if !foundLastEventID {
		t.Error("expected Last-Event-ID in default allowed headers")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"port too large", func(c *Config) { c.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Port = -1 }, true},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -1 }, true},
		{"negative write timeout", func(c *Config) { c.WriteTimeout = -5 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestHandlerServesDefaultEndpoints(t *testing.T) {
	s := newTestServer()
	s.ApplyDefaults("agent-bridged", nil)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("health response is not JSON: %v", err)
	}
	if body["service"] != "agent-bridged" {
		t.Errorf("expected service 'agent-bridged', got %v", body["service"])
	}
}

func TestMiddlewareCoversMountedHandlers(t *testing.T) {
	s := newTestServer()
	s.Handle("/raw/", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	s.ApplyMiddleware("agent-bridged")

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/raw/x", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from mounted handler, got %d", rr.Code)
	}
	// Request-ID middleware runs at the handler level, outside Gin.
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id on response from non-Gin handler")
	}
}

func TestComponentLifecycleMetadata(t *testing.T) {
	s := newTestServer()
	s.RegisterDefaultEndpoints("agent-bridged", nil)
	sc := NewComponent(s)

	if sc.Name() != "http-server" {
		t.Errorf("unexpected component name %q", sc.Name())
	}

	h := sc.Health(context.Background())
	if h.Status != "healthy" {
		t.Errorf("expected healthy, got %s", h.Status)
	}

	desc := sc.Describe()
	if desc.Type != "server" {
		t.Errorf("expected type server, got %q", desc.Type)
	}

	routes := sc.Routes()
	if len(routes) == 0 {
		t.Fatal("expected registered routes")
	}
	for _, r := range routes {
		if systemPaths[r.Path] && !strings.Contains(r.Handler, "⚙️") {
			t.Errorf("expected system marker on %s", r.Path)
		}
	}
}

func TestFormatHandlerName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"github.com/kbukum/agentbridge/bridge.(*SessionHandler).Events-fm", "SessionHandler.Events"},
		{"github.com/kbukum/agentbridge/server.Server.RegisterDefaultEndpoints.Health.func1", "health"},
		{"main.setupRoutes.func2", "setuproutes"},
	}

	for _, tc := range tests {
		if got := formatHandlerName(tc.in); got != tc.want {
			t.Errorf("formatHandlerName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMethodOrder(t *testing.T) {
	if methodOrder("GET") >= methodOrder("POST") {
		t.Error("expected GET to sort before POST")
	}
	if methodOrder("DELETE") >= methodOrder("TRACE") {
		t.Error("expected DELETE to sort before unknown methods")
	}
}
