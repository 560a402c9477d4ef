package middleware

import (
	"net/http"
	"strconv"

	"github.com/kbukum/agentbridge/observability"
)

// Telemetry returns middleware that wraps each request in a tracked
// operation: a span carrying service, operation, and request-id attributes,
// plus request metrics when instruments are provided. Health-check paths
// are skipped. Spans and metrics are no-ops until the observability
// providers are initialized, so the middleware is safe to apply
// unconditionally.
func Telemetry(serviceName string, metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			operation := r.Method + " " + r.URL.Path
			oc := observability.NewOperationContext(serviceName, operation,
				r.Header.Get("X-Request-Id"), "", metrics)
			ctx, span := oc.StartSpanForOperation(r.Context(), operation)

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(observability.WithOperationContext(ctx, oc)))

			oc.EndOperation(ctx, span, strconv.Itoa(sw.status), nil)
		})
	}
}
