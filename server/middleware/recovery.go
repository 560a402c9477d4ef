package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/observability"
)

// Recovery returns middleware that recovers from panics, logs the stack, and
// responds with a generic 500. It must be the outermost middleware so that a
// panic anywhere in the chain is caught. A nil metrics skips the panic
// counter.
func Recovery(log *logger.Logger, metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("Panic recovered", map[string]interface{}{
						"error":  fmt.Sprintf("%v", rec),
						"stack":  string(debug.Stack()),
						"path":   r.URL.Path,
						"method": r.Method,
					})
					if metrics != nil {
						metrics.RecordError(r.Context(), "panic", "http")
					}
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
