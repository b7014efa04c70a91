// Package config handles configuration loading for ticketd.
//
// # Overview
//
// Configuration is loaded from a YAML, TOML or JSONC file on top of
// Default(), so every key is optional. The extension picks the format:
// .toml is TOML, .json and .jsonc are JSON with comments and trailing commas
// allowed, anything else is YAML. Load validates the result.
//
// # Configuration File
//
// Located by, in order:
//
//  1. The --config flag
//  2. The TICKETD_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/ticketd/ticketd.yaml, else ~/.config/ticketd/ticketd.yaml
//
// A missing file at the default location is not an error; the defaults run
// the demo server on 127.0.0.1:8080.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	auth:
//	  demo_password: "${TICKETD_DEMO_PASSWORD}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	server:
//	  shutdown_timeout: "5s"
//
// # Example
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//	auth:
//	  cookie_name: "auth-token"
//	  demo_username: "demo1"
//	  demo_password: "welcome"
//	  demo_subject_id: 1
//	tickets:
//	  owner_scoped: false
//	  max_title_length: 256
//	logging:
//	  level: "info"
//	  format: "text"
package config
