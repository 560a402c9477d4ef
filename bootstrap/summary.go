package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/agentbridge/component"
	"github.com/kbukum/agentbridge/di"
	"github.com/kbukum/agentbridge/logger"
)

// ComponentStatus holds the tracked status of a component during bootstrap.
type ComponentStatus struct {
	Name    string
	Status  string
	Healthy bool
}

// InfrastructureInfo holds detailed infrastructure component information.
type InfrastructureInfo struct {
	Name    string
	Type    string // e.g. "server", "bridge", "telemetry"
	Status  string
	Details string
	Port    int
	Healthy bool
}

// BusinessComponentInfo represents a business-layer component (service, repository, handler).
type BusinessComponentInfo struct {
	Name         string
	Type         string // "service", "repository", "handler"
	Status       string
	Dependencies []string
}

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// StreamInfo represents a long-lived upstream event stream.
type StreamInfo struct {
	Name   string
	Source string
	Status string
}

// ClientInfo represents an external client connection.
type ClientInfo struct {
	Name   string
	Target string
	Status string
	Type   string // e.g. "http"
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	components      []ComponentStatus
	infrastructure  []InfrastructureInfo
	business        []BusinessComponentInfo
	routes          []RouteInfo
	streams         []StreamInfo
	clients         []ClientInfo
}

// NewSummary creates a new bootstrap summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName:    serviceName,
		version:        version,
		components:     make([]ComponentStatus, 0),
		infrastructure: make([]InfrastructureInfo, 0),
		business:       make([]BusinessComponentInfo, 0),
		routes:         make([]RouteInfo, 0),
		streams:        make([]StreamInfo, 0),
		clients:        make([]ClientInfo, 0),
	}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackComponent adds a component's bootstrap status to the summary.
func (s *Summary) TrackComponent(name, status string, healthy bool) {
	s.components = append(s.components, ComponentStatus{
		Name:    name,
		Status:  status,
		Healthy: healthy,
	})
}

// TrackInfrastructure adds an infrastructure component with detailed metadata.
// Components implementing component.Describable are collected automatically;
// use this for infrastructure that lives outside the registry.
func (s *Summary) TrackInfrastructure(name, componentType, status, details string, port int, healthy bool) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    componentType,
		Status:  status,
		Details: details,
		Port:    port,
		Healthy: healthy,
	})
}

// TrackBusinessComponent records a business-layer component.
func (s *Summary) TrackBusinessComponent(name, componentType, status string, dependencies []string) {
	s.business = append(s.business, BusinessComponentInfo{
		Name:         name,
		Type:         componentType,
		Status:       status,
		Dependencies: dependencies,
	})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{
		Method:  method,
		Path:    path,
		Handler: handler,
	})
}

// TrackStream records a long-lived upstream event stream.
func (s *Summary) TrackStream(name, source, status string) {
	s.streams = append(s.streams, StreamInfo{
		Name:   name,
		Source: source,
		Status: status,
	})
}

// TrackClient records an external client connection.
func (s *Summary) TrackClient(name, target, status, clientType string) {
	s.clients = append(s.clients, ClientInfo{
		Name:   name,
		Target: target,
		Status: status,
		Type:   clientType,
	})
}

// DisplaySummary prints the bootstrap summary. Infrastructure details and
// routes are auto-collected from registry components implementing
// component.Describable and component.RouteProvider; the business layer is
// derived from DI registration keys following the "<type>.<name>" convention
// (service.user, repository.user, handler.users). Manually tracked entries
// are kept and never duplicated.
func (s *Summary) DisplaySummary(registry *component.Registry, container di.Container, log *logger.Logger) {
	s.collectFromRegistry(registry)
	s.collectFromContainer(container)

	// Header
	fmt.Printf("\n")
	fmt.Printf("🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	// Infrastructure (detailed)
	if len(s.infrastructure) > 0 {
		fmt.Printf("📊 Infrastructure\n")
		for i, inf := range s.infrastructure {
			icon := statusIcon(inf.Status, inf.Healthy)
			details := inf.Details
			if inf.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, inf.Port)
			}
			fmt.Printf("   %s %s %s: %s\n", treePrefix(i, len(s.infrastructure)), icon, inf.Name, details)
		}
		fmt.Printf("\n")
	}

	// Components
	if len(s.components) > 0 {
		fmt.Printf("📦 Components\n")
		healthy := 0
		for i, c := range s.components {
			icon := statusIcon(c.Status, c.Healthy)
			fmt.Printf("   %s %s %s (%s)\n", treePrefix(i, len(s.components)), icon, c.Name, c.Status)
			if c.Healthy {
				healthy++
			}
		}
		fmt.Printf("\n")

		total := len(s.components)
		if healthy == total {
			fmt.Printf("✅ All components healthy (%d/%d)\n", healthy, total)
		} else {
			fmt.Printf("⚠️  Some components have issues (%d/%d healthy)\n", healthy, total)
		}
	}

	if len(s.infrastructure) == 0 && len(s.components) == 0 {
		fmt.Printf("   └── No components registered\n")
	}

	// Business layer
	if len(s.business) > 0 {
		fmt.Printf("\n💼 Business Layer\n")
		for i, b := range s.business {
			fmt.Printf("   %s %s [%s] (%s)\n", treePrefix(i, len(s.business)), businessIcon(b.Type), b.Name, b.Status)
			for j, dep := range b.Dependencies {
				depPrefix := "│   ├──"
				if i == len(s.business)-1 {
					depPrefix = "    ├──"
				}
				if j == len(b.Dependencies)-1 {
					if i == len(s.business)-1 {
						depPrefix = "    └──"
					} else {
						depPrefix = "│   └──"
					}
				}
				fmt.Printf("   %s 🔗 %s\n", depPrefix, dep)
			}
		}
	}

	// Routes
	if len(s.routes) > 0 {
		fmt.Printf("\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Printf("   %s %s%-7s%s %s → %s\n", treePrefix(i, len(s.routes)),
				methodColor(r.Method), r.Method, colorReset, r.Path, r.Handler)
		}
	}

	// Streams
	if len(s.streams) > 0 {
		fmt.Printf("\n📡 Streams\n")
		for i, st := range s.streams {
			fmt.Printf("   %s %s ← %s [%s]\n", treePrefix(i, len(s.streams)), st.Name, st.Source, st.Status)
		}
	}

	// Clients
	if len(s.clients) > 0 {
		fmt.Printf("\n🔌 Clients\n")
		for i, c := range s.clients {
			fmt.Printf("   %s %s → %s [%s] (%s)\n", treePrefix(i, len(s.clients)), c.Name, c.Target, c.Type, c.Status)
		}
	}

	// Live health check
	if registry != nil {
		healthResults := registry.HealthAll(context.Background())
		if len(healthResults) > 0 {
			fmt.Printf("\n🏥 Health Check\n")
			for i, h := range healthResults {
				icon := healthStatusIcon(h.Status)
				msg := ""
				if h.Message != "" {
					msg = fmt.Sprintf(" — %s", h.Message)
				}
				fmt.Printf("   %s %s %s: %s%s\n", treePrefix(i, len(healthResults)), icon, h.Name, strings.ToLower(string(h.Status)), msg)
			}
		}
	}

	fmt.Printf("\n")

	if log != nil {
		log.Debug("Startup summary displayed", map[string]interface{}{
			"infrastructure": len(s.infrastructure),
			"business":       len(s.business),
			"routes":         len(s.routes),
			"streams":        len(s.streams),
		})
	}
}

// collectFromRegistry pulls infrastructure descriptions and routes from
// components that self-report via the optional interfaces.
func (s *Summary) collectFromRegistry(registry *component.Registry) {
	if registry == nil {
		return
	}
	ctx := context.Background()

	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			name := desc.Name
			if name == "" {
				name = c.Name()
			}
			if !s.hasInfrastructure(name) {
				h := c.Health(ctx)
				s.infrastructure = append(s.infrastructure, InfrastructureInfo{
					Name:    name,
					Type:    desc.Type,
					Status:  string(h.Status),
					Details: desc.Details,
					Port:    desc.Port,
					Healthy: h.Status == component.StatusHealthy,
				})
			}
		}
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				if !s.hasRoute(r.Method, r.Path) {
					s.routes = append(s.routes, RouteInfo{
						Method:  r.Method,
						Path:    r.Path,
						Handler: r.Handler,
					})
				}
			}
		}
	}
}

// collectFromContainer derives the business layer from DI registration keys.
func (s *Summary) collectFromContainer(container di.Container) {
	if container == nil {
		return
	}
	for _, reg := range container.Registrations() {
		compType, name, ok := splitBusinessKey(reg.Key)
		if !ok || s.hasBusiness(name) {
			continue
		}
		status := "active"
		if reg.Mode == di.Lazy && !reg.Initialized {
			status = "lazy"
		}
		s.business = append(s.business, BusinessComponentInfo{
			Name:   name,
			Type:   compType,
			Status: status,
		})
	}
}

func (s *Summary) hasInfrastructure(name string) bool {
	for _, inf := range s.infrastructure {
		if inf.Name == name {
			return true
		}
	}
	return false
}

func (s *Summary) hasRoute(method, path string) bool {
	for _, r := range s.routes {
		if r.Method == method && r.Path == path {
			return true
		}
	}
	return false
}

func (s *Summary) hasBusiness(name string) bool {
	for _, b := range s.business {
		if b.Name == name {
			return true
		}
	}
	return false
}

// splitBusinessKey parses DI keys of the form "<type>.<name>" where type is
// one of the business-layer categories. Other keys (config, infrastructure
// singletons) are skipped.
func splitBusinessKey(key string) (compType, name string, ok bool) {
	for _, t := range []string{"service", "repository", "handler"} {
		prefix := t + "."
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			return t, key[len(prefix):], true
		}
	}
	return "", "", false
}

// treePrefix returns the branch glyph for item i of n in a tree listing.
func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

const colorReset = "\033[0m"

// methodColor returns the ANSI color used for an HTTP method in the route
// listing, mirroring gin's route dump colors.
func methodColor(method string) string {
	switch method {
	case "GET":
		return "\033[34m"
	case "POST":
		return "\033[36m"
	case "PUT":
		return "\033[33m"
	case "PATCH":
		return "\033[32m"
	case "DELETE":
		return "\033[31m"
	default:
		return "\033[37m"
	}
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "❌"
	}
	switch status {
	case "active", "initialized", "connected", "healthy", "streaming":
		return "✅"
	case "lazy":
		return "⚡"
	case "inactive", "disabled":
		return "⏸️"
	case "error", "failed":
		return "❌"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}

func businessIcon(compType string) string {
	switch compType {
	case "service":
		return "⚙️"
	case "repository":
		return "📁"
	case "handler":
		return "🎯"
	default:
		return "💼"
	}
}
