// Package logger provides structured logging for agentbridge
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("supervisor")
//	log.Info("stream connected", logger.Fields("attempt", 1))
package logger
