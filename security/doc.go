// Package security provides shared security primitives for the agentbridge service.
//
// It includes TLS configuration and certificate handling that can be reused
// across the HTTP client and server transports.
//
// # TLS Configuration
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/path/to/ca.pem",
//	    CertFile: "/path/to/cert.pem",
//	    KeyFile:  "/path/to/key.pem",
//	}
//
//	tlsConfig, err := cfg.Build()
package security
