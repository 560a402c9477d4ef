// Package resilience provides patterns for building fault-tolerant systems.
//
// This package includes:
//   - CircuitBreaker: Prevents cascading failures by failing fast
//   - Retry: Retries failed operations with exponential backoff
//   - Backoff: The bare delay schedule for callers owning their own loop
//   - RateLimiter: Controls request rate with token bucket algorithm
//
// These patterns can be combined for comprehensive resilience:
//
//	// Example: HTTP client with all patterns
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("http"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	err := cb.Execute(func() error {
//	    return rl.ExecuteWait(ctx, func() error {
//	        return httpClient.Do(req)
//	    })
//	})
package resilience
