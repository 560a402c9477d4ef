// Package util provides generic utility functions shared across agentbridge packages.
//
// It includes string sanitization, secret masking for logs, size parsing,
// and small slice and default-value helpers.
package util
