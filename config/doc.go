// Package config provides configuration loading for agentbridge services.
//
// Configuration is layered: a YAML config file is loaded first, then
// environment variables (including values from a .env file) override it.
// Both files are discovered automatically relative to the working
// directory, or can be pinned with options:
//
//	var cfg Config
//	err := config.LoadConfig("agentbridge", &cfg,
//	    config.WithConfigFile("./cmd/agentbridged/config.yml"))
//
// Environment variables map onto nested keys by underscore splitting, so
// BRIDGE_QUEUE_CAPACITY overrides the bridge.queue_capacity setting.
package config
