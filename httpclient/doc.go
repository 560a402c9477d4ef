// Package httpclient provides a configurable HTTP adapter with built-in
// authentication, TLS, resilience (retry, circuit breaker, rate limiting),
// and streaming support.
//
// The Adapter handles all HTTP protocol concerns. Typed REST helpers
// (Get, Post, ...) decode JSON responses, and DoStream returns long-lived
// streaming responses with an attached SSE frame decoder for
// text/event-stream content.
//
// # Basic Usage
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://127.0.0.1:4096",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BasicAuth("opencode", password),
//	})
//
//	resp, err := adapter.Do(ctx, httpclient.Request{
//	    Method: http.MethodGet,
//	    Path:   "/global/health",
//	})
//
// # Streaming
//
//	stream, err := adapter.DoStream(ctx, httpclient.Request{
//	    Method:  http.MethodGet,
//	    Path:    "/event",
//	    Headers: map[string]string{"Accept": "text/event-stream"},
//	})
//	defer stream.Close()
//	for {
//	    ev, err := stream.SSE.Next()
//	    ...
//	}
//
// # With Resilience
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://127.0.0.1:4096",
//	    Retry:   httpclient.DefaultRetryConfig(),
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("engine"),
//	})
package httpclient
